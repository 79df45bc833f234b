package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendtracker"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	quoteFetches   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	alertsFired    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	cycles         *prometheus.CounterVec
	refreshRunning prometheus.Gauge
}

// New registers collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		quoteFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quote_fetches_total",
				Help:      "Quote provider calls by caller and outcome",
			},
			[]string{"source", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last persisted price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"operation"},
		),
		alertsFired: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_triggered_total",
				Help:      "Alerts transitioned to triggered",
			},
			[]string{"direction"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification attempts by channel and outcome",
			},
			[]string{"channel", "result"},
		),
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Scheduler cycles by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		refreshRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_running",
			Help:      "1 while a refresh cycle is in progress",
		}),
	}
}

func (r *Recorder) RecordQuoteFetch(source, result string) {
	r.quoteFetches.WithLabelValues(source, result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordPriceUpdated(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordAlertTriggered(direction string) {
	r.alertsFired.WithLabelValues(direction).Inc()
}

func (r *Recorder) RecordNotification(channel, result string) {
	r.notifications.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) RecordCycle(kind, result string) {
	r.cycles.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) SetRefreshing(running bool) {
	if running {
		r.refreshRunning.Set(1)
		return
	}
	r.refreshRunning.Set(0)
}
