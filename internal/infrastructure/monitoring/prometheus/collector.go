// Package prometheus exposes the search engine's operational metrics.  Long
// batch runs can serve them over HTTP; short CLI runs typically leave the
// listener disabled and the collectors are cheap no-fan-out counters.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/macroconf/pkg/errors"
)

// CollectorConfig holds configuration for the metrics registry.
type CollectorConfig struct {
	Namespace            string `mapstructure:"namespace"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// Collector owns a private registry so tests and repeated runs never collide
// with the global default registry.
type Collector struct {
	registry  *prometheus.Registry
	namespace string
}

// NewCollector creates a metrics collector backed by a fresh registry.
func NewCollector(cfg CollectorConfig) (*Collector, error) {
	if cfg.Namespace == "" {
		return nil, errors.Validation("metrics namespace is required")
	}
	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(prometheus.NewGoCollector())
	}
	return &Collector{registry: registry, namespace: cfg.Namespace}, nil
}

// Handler returns the HTTP handler serving the registry in the exposition
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) counter(name, help string) prometheus.Counter {
	m := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: c.namespace, Name: name, Help: help,
	})
	c.registry.MustRegister(m)
	return m
}

func (c *Collector) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace, Name: name, Help: help,
	}, labels)
	c.registry.MustRegister(m)
	return m
}

func (c *Collector) gauge(name, help string) prometheus.Gauge {
	m := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.namespace, Name: name, Help: help,
	})
	c.registry.MustRegister(m)
	return m
}

func (c *Collector) histogram(name, help string, buckets []float64) prometheus.Histogram {
	m := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: c.namespace, Name: name, Help: help, Buckets: buckets,
	})
	c.registry.MustRegister(m)
	return m
}
