package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
)

const (
	defaultProgressEvery = 10000
	defaultFlushTimeout  = 10 * time.Second
)

// Settings are the batch and enrichment knobs that stay fixed for a Pipeline.
type Settings struct {
	BatchSize         int
	BatchRetryDepth   int
	EnrichMaxAttempts int
	// FlushTimeout bounds the final flush after the run context is cancelled.
	FlushTimeout time.Duration
	Defaults     domain.Defaults
}

// Options select what a single Run ingests.
type Options struct {
	Dir           string
	PreviewLength int
	ProgressEvery int
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithStationLookup enables station enrichment.
func WithStationLookup(l domain.StationLookup) Option {
	return func(p *Pipeline) { p.lookup = l }
}

// WithPublisher announces every committed batch to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithRejectSink records every errored or failed file in sink.
func WithRejectSink(sink RejectSink) Option {
	return func(p *Pipeline) { p.rejects = sink }
}

// WithClock replaces the clock used for durations and progress.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline ingests a directory of bulletin files into a Store.
type Pipeline struct {
	store     Store
	settings  Settings
	lookup    domain.StationLookup
	publisher Publisher
	rejects   RejectSink
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu      sync.Mutex
	current Report
}

// New creates a Pipeline writing to store.
func New(store Store, settings Settings, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	if settings.FlushTimeout <= 0 {
		settings.FlushTimeout = defaultFlushTimeout
	}
	if settings.Defaults.Stations == nil && settings.Defaults.Products == nil {
		settings.Defaults = domain.BuiltinDefaults()
	}
	p := &Pipeline{
		store:    store,
		settings: settings,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once existing keys have been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("existing bulletins not loaded yet")
	}
	return nil
}

// Progress returns a snapshot of the running (or last) run's counters.
func (p *Pipeline) Progress() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Run ingests every file in opts.Dir once. Per-file failures are counted in
// the report and never returned. A *FatalError is returned when the run could
// not start or a batch could not be committed after retries. Cancelling ctx
// stops the scan between files; what is buffered is still flushed and the
// partial report has Cancelled set.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Report, error) {
	if opts.PreviewLength < 0 {
		opts.PreviewLength = 0
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}

	start := p.clock.Now()
	p.ready.Store(false)
	p.setProgress(Report{})
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if fi, err := os.Stat(opts.Dir); err != nil {
		return Report{}, fatal("start", ErrFatalConfig, err)
	} else if !fi.IsDir() {
		return Report{}, fatal("start", ErrFatalConfig, fmt.Errorf("%s is not a directory", opts.Dir))
	}

	r := &run{
		p:       p,
		opts:    opts,
		catalog: NewCatalog(p.store, p.lookup, p.settings.Defaults, p.settings.EnrichMaxAttempts, p.logger, p.metrics),
		writer:  NewWriter(p.store, p.publisher, p.settings.BatchSize, p.settings.BatchRetryDepth, p.logger, p.metrics),
	}
	r.catalog.writeTimeout = p.settings.FlushTimeout

	if err := r.writer.Load(ctx); err != nil {
		return Report{}, fatal("load existing keys", ErrFatalConfig, err)
	}
	if err := r.catalog.Load(ctx); err != nil {
		return Report{}, fatal("load existing keys", ErrFatalConfig, err)
	}
	p.ready.Store(true)

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return Report{}, fatal("scan directory", ErrFatalConfig, err)
	}
	total := 0
	for _, e := range entries {
		if !e.IsDir() {
			total++
		}
	}
	p.logger.Info("ingestion started", "dir", opts.Dir, "files", total, "batch_size", p.settings.BatchSize)

	var runErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			p.logger.Warn("ingestion cancelled", "scanned", r.report.Scanned, "of", total)
			break
		}

		r.report.Scanned++
		p.metrics.FilesScanned.Inc()
		if err := r.file(ctx, e.Name()); err != nil {
			runErr = &FatalError{Stage: "buffer", Err: err}
			break
		}

		if r.report.Scanned%opts.ProgressEvery == 0 {
			r.logProgress(total, p.clock.Since(start))
		}
		p.setProgress(r.report)
	}

	if runErr == nil {
		if err := r.finalFlush(ctx); err != nil {
			runErr = &FatalError{Stage: "final flush", Err: err}
		}
	}
	r.report.Cancelled = ctx.Err() != nil

	r.report.Duration = p.clock.Since(start)
	r.report.EnrichmentDisabled = r.catalog.EnrichmentDisabled()
	r.report.StationsCreated = r.catalog.StationsCreated()
	r.report.ProductsCreated = r.catalog.ProductsCreated()
	p.setProgress(r.report)

	if runErr != nil {
		p.logger.Error("ingestion aborted", "report", r.report, "error", runErr)
		return r.report, runErr
	}
	p.logger.Info("ingestion complete", "report", r.report)
	return r.report, nil
}

func (p *Pipeline) setProgress(r Report) {
	p.mu.Lock()
	p.current = r
	p.mu.Unlock()
}

// run holds the state of one Run call.
type run struct {
	p       *Pipeline
	opts    Options
	catalog *Catalog
	writer  *Writer
	report  Report
}

// file handles one directory entry. Only a batch that cannot be committed is
// returned as an error; every other failure is counted.
func (r *run) file(ctx context.Context, name string) error {
	path := filepath.Join(r.opts.Dir, name)

	md, err := domain.ParseFilename(name)
	if err != nil {
		r.errored(domain.StageParse, name, err)
		return nil
	}

	if r.writer.Seen(name) {
		r.report.Processed++
		r.report.Skipped++
		r.p.metrics.BulletinsSkipped.Inc()
		r.p.logger.Debug("skipping already ingested file", "file", name)
		return nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		r.errored(domain.StageStat, name, err)
		return nil
	}
	if !fi.Mode().IsRegular() {
		r.errored(domain.StageStat, name, errors.New("not a regular file"))
		return nil
	}

	if md.TimestampFallback {
		r.p.logger.Warn("invalid timestamp in filename, using current time", "file", name)
	}

	if _, err := r.catalog.ResolveStation(ctx, md.Originator, md.BulletinTimestamp); err != nil {
		r.errored(domain.StageDimension, name, err)
		return nil
	}
	if _, err := r.catalog.ResolveProduct(ctx, md.ProductCode, md.BulletinTimestamp); err != nil {
		r.errored(domain.StageDimension, name, err)
		return nil
	}

	b := domain.NewBulletinFile(md, path, fi.Size(), fi.ModTime())
	b.Preview = readPreview(path, r.opts.PreviewLength)

	r.report.Processed++
	res, err := r.writer.Offer(ctx, b)
	r.apply(res)
	return err
}

// finalFlush commits what is buffered. Bulletins still pending afterwards were
// requeued by a commit the flush deadline cut short and count as failed.
func (r *run) finalFlush(ctx context.Context) error {
	ctx, cancel := detachIfDone(ctx, r.p.settings.FlushTimeout)
	defer cancel()

	res, err := r.writer.Flush(ctx)
	if left := r.writer.Discard(); len(left) > 0 {
		res.Failed = append(res.Failed, left...)
		if err == nil {
			err = fmt.Errorf("%w: %d bulletins: %w", ErrBatchCommit, len(left), context.Cause(ctx))
		}
	}
	r.apply(res)
	return err
}

// detachIfDone returns ctx while it is live. Once ctx is done it returns a
// context that keeps its values, ignores the cancellation, and expires after
// timeout, so work already started can finish.
func detachIfDone(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (r *run) apply(res FlushResult) {
	r.report.Added += res.Added
	r.report.Skipped += res.Duplicates
	r.report.Failed += len(res.Failed)
	r.p.metrics.BulletinsAdded.Add(float64(res.Added))
	r.p.metrics.BulletinsSkipped.Add(float64(res.Duplicates))
	r.p.metrics.BulletinsFailed.Add(float64(len(res.Failed)))
	for _, name := range res.Failed {
		r.reject(domain.StageCommit, name, ErrBatchCommit.Error())
	}
}

func (r *run) errored(stage, name string, err error) {
	r.report.Errored++
	r.p.metrics.FilesErrored.WithLabelValues(stage).Inc()
	r.p.logger.Warn("skipping file", "file", name, "stage", stage, "error", err)
	r.reject(stage, name, err.Error())
}

func (r *run) reject(stage, name, reason string) {
	if r.p.rejects == nil {
		return
	}
	if err := r.p.rejects.Reject(domain.Rejection{Filename: name, Stage: stage, Reason: reason}); err != nil {
		r.p.logger.Warn("record rejected file failed", "file", name, "error", err)
	}
}

func (r *run) logProgress(total int, elapsed time.Duration) {
	perSecond, eta := progress(r.report.Scanned, total, elapsed)
	r.p.logger.Info("ingestion progress",
		"scanned", r.report.Scanned,
		"total", total,
		"added", r.report.Added,
		"skipped", r.report.Skipped,
		"errored", r.report.Errored,
		"elapsed", elapsed.Round(time.Second),
		"files_per_sec", fmt.Sprintf("%.1f", perSecond),
		"eta", eta.Round(time.Second),
	)
}
