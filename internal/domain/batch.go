package domain

import "time"

// Batch is a unit of bulletins committed in one storage transaction. The
// seen maps carry the latest bulletin timestamp per referenced station and
// product so their last_seen can advance in the same transaction.
type Batch struct {
	Bulletins   []BulletinFile
	StationSeen map[string]time.Time
	ProductSeen map[string]time.Time
}

// NewBatch builds a Batch and derives the seen maps from bulletins.
func NewBatch(bulletins []BulletinFile) Batch {
	b := Batch{
		Bulletins:   bulletins,
		StationSeen: make(map[string]time.Time),
		ProductSeen: make(map[string]time.Time),
	}
	for _, f := range bulletins {
		if t, ok := b.StationSeen[f.Originator]; !ok || f.BulletinTimestamp.After(t) {
			b.StationSeen[f.Originator] = f.BulletinTimestamp
		}
		if t, ok := b.ProductSeen[f.ProductCode]; !ok || f.BulletinTimestamp.After(t) {
			b.ProductSeen[f.ProductCode] = f.BulletinTimestamp
		}
	}
	return b
}

// BatchResult reports what a committed batch actually inserted. Duplicates
// lists filenames the uniqueness constraint rejected, typically because a
// concurrent run committed them first.
type BatchResult struct {
	Inserted   int
	Duplicates []string
}
