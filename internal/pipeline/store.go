package pipeline

import (
	"context"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// DimensionStore persists stations and products. Saves are upserts keyed by
// code that never replace a stored attribute with an unknown one.
type DimensionStore interface {
	LoadStations(ctx context.Context) ([]domain.Station, error)
	LoadProducts(ctx context.Context) ([]domain.Product, error)
	SaveStation(ctx context.Context, s domain.Station) error
	SaveProduct(ctx context.Context, p domain.Product) error
}

// BatchStore persists bulletin files.
type BatchStore interface {
	LoadFilenames(ctx context.Context) ([]string, error)
	// WriteBatch commits every bulletin in b in a single transaction or none.
	WriteBatch(ctx context.Context, b domain.Batch) (domain.BatchResult, error)
}

// Store is everything a run needs from storage.
type Store interface {
	DimensionStore
	BatchStore
}

// Publisher announces newly committed bulletins downstream.
type Publisher interface {
	Publish(ctx context.Context, bulletins []domain.BulletinFile) error
}

// RejectSink records files that were counted but not ingested.
type RejectSink interface {
	Reject(r domain.Rejection) error
}
