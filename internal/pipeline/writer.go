package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
)

// FlushResult summarizes one flush.
type FlushResult struct {
	Added      int
	Duplicates int
	// Failed lists filenames that were never committed.
	Failed []string
}

func (r *FlushResult) add(o FlushResult) {
	r.Added += o.Added
	r.Duplicates += o.Duplicates
	r.Failed = append(r.Failed, o.Failed...)
}

// Writer deduplicates bulletins by filename and commits them in batches.
type Writer struct {
	store      BatchStore
	publisher  Publisher
	batchSize  int
	retryDepth int
	logger     *slog.Logger
	metrics    *observability.Metrics

	seen map[string]struct{}
	buf  []domain.BulletinFile
}

// NewWriter creates a Writer. publisher may be nil.
func NewWriter(store BatchStore, publisher Publisher, batchSize, retryDepth int, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Writer{
		store:      store,
		publisher:  publisher,
		batchSize:  batchSize,
		retryDepth: retryDepth,
		logger:     logger,
		metrics:    metrics,
		seen:       make(map[string]struct{}),
		buf:        make([]domain.BulletinFile, 0, batchSize),
	}
}

// Load reads every ingested filename from storage in a single query.
func (w *Writer) Load(ctx context.Context) error {
	names, err := w.store.LoadFilenames(ctx)
	if err != nil {
		return fmt.Errorf("load filenames: %w", err)
	}
	w.seen = make(map[string]struct{}, len(names))
	for _, n := range names {
		w.seen[n] = struct{}{}
	}
	w.logger.Info("existing bulletins loaded", "count", len(names))
	return nil
}

// Seen reports whether filename is already stored or buffered.
func (w *Writer) Seen(filename string) bool {
	_, ok := w.seen[filename]
	return ok
}

// Pending is the number of buffered, uncommitted bulletins.
func (w *Writer) Pending() int { return len(w.buf) }

// Offer buffers b and flushes once the buffer holds a full batch.
func (w *Writer) Offer(ctx context.Context, b domain.BulletinFile) (FlushResult, error) {
	w.seen[b.Filename] = struct{}{}
	w.buf = append(w.buf, b)
	if len(w.buf) < w.batchSize {
		return FlushResult{}, nil
	}
	return w.Flush(ctx)
}

// Flush commits the buffer. A failed batch is split in half and each half
// retried, up to the configured depth; what still fails is returned in
// FlushResult.Failed together with an error wrapping ErrBatchCommit.
func (w *Writer) Flush(ctx context.Context) (FlushResult, error) {
	if len(w.buf) == 0 {
		return FlushResult{}, nil
	}
	batch := w.buf
	w.buf = make([]domain.BulletinFile, 0, w.batchSize)

	return w.commit(ctx, batch, w.retryDepth)
}

// Discard empties the buffer and returns the filenames it held.
func (w *Writer) Discard() []string {
	names := filenames(w.buf)
	w.buf = make([]domain.BulletinFile, 0, w.batchSize)
	return names
}

func (w *Writer) commit(ctx context.Context, bulletins []domain.BulletinFile, depth int) (FlushResult, error) {
	start := time.Now()
	res, err := w.store.WriteBatch(ctx, domain.NewBatch(bulletins))
	if err == nil {
		w.metrics.BatchSize.Observe(float64(len(bulletins)))
		w.metrics.BatchCommitDuration.Observe(time.Since(start).Seconds())
		w.publish(ctx, bulletins, res.Duplicates)
		return FlushResult{Added: res.Inserted, Duplicates: len(res.Duplicates)}, nil
	}

	// A commit cut short by cancellation is not a failure; the bulletins go
	// back into the buffer for the final flush.
	if ctx.Err() != nil {
		w.buf = append(w.buf, bulletins...)
		w.logger.Info("batch commit interrupted, requeued", "size", len(bulletins), "error", err)
		return FlushResult{}, nil
	}

	w.metrics.BatchFailures.Inc()
	w.logger.Warn("batch commit failed",
		"size", len(bulletins),
		"retries_left", depth,
		"error", err,
	)

	if depth <= 0 {
		return FlushResult{Failed: filenames(bulletins)}, fmt.Errorf("%w: %d bulletins: %w", ErrBatchCommit, len(bulletins), err)
	}

	if len(bulletins) == 1 {
		return w.commit(ctx, bulletins, depth-1)
	}

	mid := len(bulletins) / 2
	var total FlushResult
	for i, half := range [][]domain.BulletinFile{bulletins[:mid], bulletins[mid:]} {
		r, err := w.commit(ctx, half, depth-1)
		total.add(r)
		if err != nil {
			if i == 0 {
				total.Failed = append(total.Failed, filenames(bulletins[mid:])...)
			}
			return total, err
		}
	}
	return total, nil
}

func (w *Writer) publish(ctx context.Context, bulletins []domain.BulletinFile, duplicates []string) {
	if w.publisher == nil {
		return
	}
	committed := bulletins
	if len(duplicates) > 0 {
		skip := make(map[string]struct{}, len(duplicates))
		for _, d := range duplicates {
			skip[d] = struct{}{}
		}
		committed = make([]domain.BulletinFile, 0, len(bulletins))
		for _, b := range bulletins {
			if _, ok := skip[b.Filename]; !ok {
				committed = append(committed, b)
			}
		}
	}
	if len(committed) == 0 {
		return
	}
	if err := w.publisher.Publish(ctx, committed); err != nil {
		w.metrics.PublishErrors.Inc()
		if !errors.Is(err, context.Canceled) {
			w.logger.Warn("publish committed bulletins failed", "count", len(committed), "error", err)
		}
		return
	}
	w.metrics.BulletinsPublished.Add(float64(len(committed)))
}

func filenames(bulletins []domain.BulletinFile) []string {
	out := make([]string, len(bulletins))
	for i, b := range bulletins {
		out[i] = b.Filename
	}
	return out
}
