package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a dedicated Prometheus registry with the core metrics
// and Go runtime collectors pre-registered.
type Registry struct {
	prom    *prometheus.Registry
	metrics *Metrics
}

// NewRegistry creates a registry with core and runtime collectors.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()
	metrics := NewMetrics()

	prom.MustRegister(metrics.collectors()...)
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{prom: prom, metrics: metrics}
}

// Core returns the core metrics.
func (r *Registry) Core() *Metrics {
	return r.metrics
}

// Prometheus returns the underlying registry for custom registration.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}

// Handler returns the /metrics HTTP handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
