package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "localized_events_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for batch
// normalization and the streaming pipeline.
type Metrics struct {
	// Normalization metrics.
	BatchesProcessed prometheus.Counter
	EventsNormalized prometheus.Counter
	EventsFiltered   prometheus.Counter
	DegenerateIDs    prometheus.Counter
	BatchFailures    *prometheus.CounterVec // labels: reason={parse,schema,load}

	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Streaming metrics.
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	PipelineRunning  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.BatchesProcessed,
		m.EventsNormalized,
		m.EventsFiltered,
		m.DegenerateIDs,
		m.BatchFailures,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.PipelineRunning,
	)
	return m
}

// NewUnregisteredMetrics creates Metrics that are never exported, for
// one-shot commands that do not serve /metrics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Total localization batches normalized successfully.",
		}),
		EventsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_normalized_total",
			Help:      "Total events projected to output rows.",
		}),
		EventsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Total events dropped by the residual RMS filter.",
		}),
		DegenerateIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_ids_total",
			Help:      "Total event IDs built from a timestamp too short to keep any digits.",
		}),
		BatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batches rejected, by reason.",
		}, []string{"reason"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of events per normalized batch.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of one parse-load-project pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total batch documents read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total normalized events written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the streaming pipeline is active, 0 when shut down.",
		}),
	}
}
