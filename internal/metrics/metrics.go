// Package metrics exposes murdash client activity as Prometheus counters on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/realtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "murdash"

// Metrics records API requests, reconnects and event frames.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry    *prometheus.Registry
	apiRequests *prometheus.CounterVec
	reconnects  prometheus.Counter
	frames      *prometheus.CounterVec
}

var (
	_ backend.Recorder  = (*Metrics)(nil)
	_ realtime.Recorder = (*Metrics)(nil)
)

// New registers every murdash collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Remote backend API requests by method and outcome (ok, status, network).",
		}, []string{"method", "outcome"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_reconnects_total",
			Help:      "Event stream reconnect attempts.",
		}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_frames_total",
			Help:      "Inbound event frames by result (ok, malformed).",
		}, []string{"result"}),
	}
}

// APIRequest counts one completed remote request.
func (m *Metrics) APIRequest(method, outcome string) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, outcome).Inc()
}

// Reconnect counts one reconnect attempt.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// Frame counts one inbound frame.
func (m *Metrics) Frame(result string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(result).Inc()
}

// Registry returns the registry holding the murdash collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
