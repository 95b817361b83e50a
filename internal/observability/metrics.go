package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for forecast runs.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	RecordsRejected prometheus.Counter
	Groups          *prometheus.CounterVec // labels: status={trend,constant,insufficient_data}
	Projections     prometheus.Counter
	Alerts          prometheus.Counter
	RunDuration     prometheus.Histogram
	LastRunSuccess  prometheus.Gauge
	SinkErrors      *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all forecast metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsLoaded,
		m.RecordsRejected,
		m.Groups,
		m.Projections,
		m.Alerts,
		m.RunDuration,
		m.LastRunSuccess,
		m.SinkErrors,
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
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "records_loaded_total",
			Help:      "Historical rows accepted into the dataset.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "records_rejected_total",
			Help:      "Historical rows excluded because a field did not parse.",
		}),
		Groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "groups_total",
			Help:      "Department/sex groups processed, by outcome.",
		}, []string{"status"}),
		Projections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "projections_total",
			Help:      "Projection rows produced.",
		}),
		Alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "alerts_total",
			Help:      "Projection rows flagged as alerts.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hiv_forecast",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-forecast-load run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hiv_forecast",
			Name:      "last_run_success",
			Help:      "1 when the most recent run completed, 0 when it failed.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hiv_forecast",
			Name:      "sink_errors_total",
			Help:      "Failed writes per output sink.",
		}, []string{"sink"}),
	}
}
