// Package metrics exposes the prediction counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthpredict"

// Error kinds used for the errors counter.
const (
	KindSchemaMismatch = "schema_mismatch"
	KindBadRequest     = "bad_request"
	KindInternal       = "internal"
	KindStore          = "store"
	KindPublish        = "publish"
	KindRender         = "render"
)

type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	batchRows   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Classified records by model and severity tier.",
		}, []string{"model", "severity"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed predictions and side effects by model and kind.",
		}, []string{"model", "kind"}),
		batchRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_rows",
			Help:      "Rows per accepted batch upload.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.errors,
		m.batchRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(model, tier string) {
	m.predictions.WithLabelValues(model, tier).Inc()
}

func (m *Metrics) ObserveError(model, kind string) {
	m.errors.WithLabelValues(model, kind).Inc()
}

func (m *Metrics) ObserveBatch(rows int) {
	m.batchRows.Observe(float64(rows))
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
