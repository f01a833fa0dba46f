package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reflstats"

// Metrics holds the Prometheus counters, histograms, and gauges for the statistics pipeline.
type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	WorkersBusy    prometheus.Gauge

	// Per-file extraction latency, including decode.
	ExtractDuration prometheus.Histogram

	// Year-run metrics.
	Runs          *prometheus.CounterVec // labels: state={done,skipped,failed}
	RunDuration   prometheus.Histogram
	RunInProgress prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Scan files that produced a histogram.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Scan files excluded from the yearly sum after a read or decode failure.",
		}),
		WorkersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Extraction tasks currently running.",
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Duration of one scan file extraction.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Year runs by terminal state.",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a year run from existence check to terminal state.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a year run is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesFailed,
		m.WorkersBusy,
		m.ExtractDuration,
		m.Runs,
		m.RunDuration,
		m.RunInProgress,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
