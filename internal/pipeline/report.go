package pipeline

import (
	"log/slog"
	"time"
)

// Report totals one run. Every scanned file lands in exactly one bucket:
// Scanned == Processed + Errored and, once the final flush has run,
// Processed == Added + Skipped + Failed.
type Report struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Failed    int `json:"failed"`

	StationsCreated int `json:"stations_created"`
	ProductsCreated int `json:"products_created"`

	Cancelled          bool          `json:"cancelled"`
	EnrichmentDisabled bool          `json:"enrichment_disabled"`
	Duration           time.Duration `json:"duration_ns"`
}

// Pending is the number of processed files not yet committed or failed.
func (r Report) Pending() int {
	return r.Processed - r.Added - r.Skipped - r.Failed
}

// LogValue renders the report as a group of slog attributes.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scanned", r.Scanned),
		slog.Int("processed", r.Processed),
		slog.Int("added", r.Added),
		slog.Int("skipped", r.Skipped),
		slog.Int("errored", r.Errored),
		slog.Int("failed", r.Failed),
		slog.Int("stations_created", r.StationsCreated),
		slog.Int("products_created", r.ProductsCreated),
		slog.Bool("cancelled", r.Cancelled),
		slog.Bool("enrichment_disabled", r.EnrichmentDisabled),
		slog.Duration("duration", r.Duration),
	)
}

// progress computes throughput and the remaining-time estimate for done of total files.
func progress(done, total int, elapsed time.Duration) (perSecond float64, eta time.Duration) {
	if done <= 0 || elapsed <= 0 {
		return 0, 0
	}
	perSecond = float64(done) / elapsed.Seconds()
	if remaining := total - done; remaining > 0 {
		eta = time.Duration(float64(remaining) / perSecond * float64(time.Second))
	}
	return perSecond, eta
}
