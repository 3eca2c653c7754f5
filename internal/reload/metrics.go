package reload

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics tracks reload outcomes.
type Metrics struct {
	reloads     *prometheus.CounterVec
	descriptors prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics creates the reload collectors and registers them with reg when
// it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsets",
			Name:      "reload_total",
			Help:      "Configuration reloads by result.",
		}, []string{"result"}),
		descriptors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docsets",
			Name:      "descriptors",
			Help:      "Descriptors in the published registry.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docsets",
			Name:      "reload_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful reload.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reloads, m.descriptors, m.lastSuccess)
	}
	return m
}

func (m *Metrics) succeeded(count int, unix float64) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(resultSuccess).Inc()
	m.descriptors.Set(float64(count))
	m.lastSuccess.Set(unix)
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(resultError).Inc()
}

// Handler serves the collectors of reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
