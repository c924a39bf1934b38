package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// index service.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ParseFailures        prometheus.Counter
	TablesPublished      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Store and recompute metrics.
	GroupsTracked      prometheus.Gauge
	ObservationsStored prometheus.Gauge
	ComputeDuration    prometheus.Histogram

	// HTTP API metrics.
	APIRequests *prometheus.CounterVec // labels: endpoint, outcome={ok,bad_request,not_found}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_index",
			Name:      "observations_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_index",
			Name:      "parse_failures_total",
			Help:      "Total source records rejected during parsing.",
		}),
		TablesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_index",
			Name:      "tables_published_total",
			Help:      "Total index tables written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_index",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_index",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_index",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch ingest-recompute-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GroupsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_index",
			Name:      "groups_tracked",
			Help:      "Number of groups with stored observations.",
		}),
		ObservationsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_index",
			Name:      "observations_stored",
			Help:      "Observations currently held across all groups.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_index",
			Name:      "table_compute_duration_seconds",
			Help:      "Duration of one group's index table computation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydro_index",
			Name:      "api_requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ParseFailures,
		m.TablesPublished,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GroupsTracked,
		m.ObservationsStored,
		m.ComputeDuration,
		m.APIRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsConsumed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_index", Name: "observations_consumed_total"}),
		ParseFailures:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_index", Name: "parse_failures_total"}),
		TablesPublished:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_index", Name: "tables_published_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_index", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_index", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_index", Name: "batch_processing_duration_seconds"}),
		GroupsTracked:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_index", Name: "groups_tracked"}),
		ObservationsStored:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_index", Name: "observations_stored"}),
		ComputeDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_index", Name: "table_compute_duration_seconds"}),
		APIRequests:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hydro_index", Name: "api_requests_total"}, []string{"endpoint", "outcome"}),
	}
}
