// Package metrics holds the Prometheus collectors shared by the router and the
// live-reload hub.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "devstatic").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is where collectors are registered.
	// Default: a fresh registry, so several servers can live in one process.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics is the set of devstatic collectors.
type Metrics struct {
	registry *prometheus.Registry

	routeDecisions *prometheus.CounterVec
	renderErrors   prometheus.Counter
	broadcasts     *prometheus.CounterVec
	messagesSent   prometheus.Counter
	sendErrors     prometheus.Counter
	clients        prometheus.Gauge
	assetEvents    *prometheus.CounterVec
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{Namespace: "devstatic"}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		routeDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "route_decisions_total",
			Help:        "Requests by routing outcome (template, rewrite, static, passthrough)",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),

		renderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "render_errors_total",
			Help:        "Template render functions that returned an error",
			ConstLabels: config.ConstLabels,
		}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "livereload",
			Name:        "broadcasts_total",
			Help:        "Live-reload broadcasts by kind (all, except)",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "livereload",
			Name:        "messages_sent_total",
			Help:        "Messages delivered to live-reload clients",
			ConstLabels: config.ConstLabels,
		}),

		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "livereload",
			Name:        "send_errors_total",
			Help:        "Per-client send failures during broadcasts",
			ConstLabels: config.ConstLabels,
		}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   "livereload",
			Name:        "clients",
			Help:        "Connected live-reload clients",
			ConstLabels: config.ConstLabels,
		}),

		assetEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "livereload",
			Name:        "asset_events_total",
			Help:        "Asset compiled events by asset type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRoute counts one routing decision.
func (m *Metrics) RecordRoute(action string) {
	if m != nil {
		m.routeDecisions.WithLabelValues(action).Inc()
	}
}

// RecordRenderError counts a failed template render.
func (m *Metrics) RecordRenderError() {
	if m != nil {
		m.renderErrors.Inc()
	}
}

// RecordBroadcast counts a broadcast and its outcome.
func (m *Metrics) RecordBroadcast(kind string, delivered, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind).Inc()
	m.messagesSent.Add(float64(delivered))
	m.sendErrors.Add(float64(failed))
}

// RecordClientConnect increments the client gauge.
func (m *Metrics) RecordClientConnect() {
	if m != nil {
		m.clients.Inc()
	}
}

// RecordClientDisconnect decrements the client gauge.
func (m *Metrics) RecordClientDisconnect() {
	if m != nil {
		m.clients.Dec()
	}
}

// RecordAssetEvent counts an asset compiled event.
func (m *Metrics) RecordAssetEvent(assetType string) {
	if m != nil {
		m.assetEvents.WithLabelValues(assetType).Inc()
	}
}
