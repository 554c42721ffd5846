package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emwin_ingest"

// Metrics holds the Prometheus counters, histograms, and gauges for an ingestion run.
type Metrics struct {
	FilesScanned     prometheus.Counter
	FilesErrored     *prometheus.CounterVec // labels: reason={parse,stat,dimension}
	BulletinsAdded   prometheus.Counter
	BulletinsSkipped prometheus.Counter
	BulletinsFailed  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch writer metrics.
	BatchSize           prometheus.Histogram
	BatchCommitDuration prometheus.Histogram
	BatchFailures       prometheus.Counter
	DimensionWrites     *prometheus.CounterVec // labels: kind={station,product}

	// Enrichment metrics.
	EnrichmentRequests  *prometheus.CounterVec   // labels: source, outcome={found,not_found,error}
	EnrichmentDuration  *prometheus.HistogramVec // labels: source
	EnrichmentNegatives prometheus.Gauge
	EnrichmentEnabled   prometheus.Gauge

	BulletinsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all ingestion metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FilesScanned,
		m.FilesErrored,
		m.BulletinsAdded,
		m.BulletinsSkipped,
		m.BulletinsFailed,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchCommitDuration,
		m.BatchFailures,
		m.DimensionWrites,
		m.EnrichmentRequests,
		m.EnrichmentDuration,
		m.EnrichmentNegatives,
		m.EnrichmentEnabled,
		m.BulletinsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_scanned_total",
			Help:      "Directory entries examined by the scanner.",
		}),
		FilesErrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_errored_total",
			Help:      "Files that could not be ingested, by reason.",
		}, []string{"reason"}),
		BulletinsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulletins_added_total",
			Help:      "Bulletin rows committed to storage.",
		}),
		BulletinsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulletins_skipped_total",
			Help:      "Bulletins skipped because the filename was already ingested.",
		}),
		BulletinsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulletins_failed_total",
			Help:      "Bulletins lost to a batch that could not be committed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while an ingestion run is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of bulletins per committed batch.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		BatchCommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_commit_duration_seconds",
			Help:      "Duration of a single batch transaction.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batch transactions that were rolled back.",
		}),
		DimensionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_writes_total",
			Help:      "Station and product upserts.",
		}, []string{"kind"}),
		EnrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      "Station lookup requests by source and outcome.",
		}, []string{"source", "outcome"}),
		EnrichmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_request_duration_seconds",
			Help:      "Station lookup request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		EnrichmentNegatives: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrichment_negative_cache_size",
			Help:      "Station codes known to have no external metadata in this run.",
		}),
		EnrichmentEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrichment_enabled",
			Help:      "1 when station enrichment is active, 0 when disabled or tripped.",
		}),
		BulletinsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulletins_published_total",
			Help:      "Committed bulletins published to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publish attempts.",
		}),
	}
}
