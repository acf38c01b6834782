// internal/monitoring/metrics.go
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

// PipelineMetrics exposes Prometheus metrics for the reconciliation
// pipeline. It satisfies both reconcile.MetricsRecorder and
// scraper.FetchObserver.
type PipelineMetrics struct {
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	outcomesTotal   *prometheus.CounterVec
	runDuration     prometheus.Histogram
	productsChecked prometheus.Counter
	lastRunSummary  *prometheus.GaugeVec
}

// NewPipelineMetrics registers the pipeline metrics on the given registerer.
// Callers owning the registry avoid duplicate-registration panics in tests.
func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(registerer)

	return &PipelineMetrics{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalogsync",
				Subsystem: "fetcher",
				Name:      "fetches_total",
				Help:      "Total page fetches by result",
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalogsync",
				Subsystem: "fetcher",
				Name:      "fetch_duration_seconds",
				Help:      "Page fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalogsync",
				Subsystem: "reconcile",
				Name:      "outcomes_total",
				Help:      "Product reconciliation outcomes by status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "catalogsync",
				Subsystem: "reconcile",
				Name:      "run_duration_seconds",
				Help:      "Full reconciliation run duration in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		),
		productsChecked: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "catalogsync",
				Subsystem: "reconcile",
				Name:      "products_checked_total",
				Help:      "Total products processed across runs",
			},
		),
		lastRunSummary: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "catalogsync",
				Subsystem: "reconcile",
				Name:      "last_run_summary",
				Help:      "Counts from the most recent run by bucket",
			},
			[]string{"bucket"},
		),
	}
}

// ObserveFetch records a single page fetch.
func (m *PipelineMetrics) ObserveFetch(result string, duration time.Duration) {
	m.fetchesTotal.WithLabelValues(result).Inc()
	m.fetchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveOutcome records one product outcome.
func (m *PipelineMetrics) ObserveOutcome(status string) {
	m.outcomesTotal.WithLabelValues(status).Inc()
	m.productsChecked.Inc()
}

// ObserveRun records a completed run.
func (m *PipelineMetrics) ObserveRun(duration time.Duration, summary reconcile.Summary) {
	m.runDuration.Observe(duration.Seconds())
	m.lastRunSummary.WithLabelValues("checked").Set(float64(summary.Checked))
	m.lastRunSummary.WithLabelValues("updated").Set(float64(summary.Updated))
	m.lastRunSummary.WithLabelValues("no_changes").Set(float64(summary.NoChanges))
	m.lastRunSummary.WithLabelValues("not_found").Set(float64(summary.NotFound))
	m.lastRunSummary.WithLabelValues("errors").Set(float64(summary.Errors))
}
