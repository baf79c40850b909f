// Package instrument adds observability to a cascade subscription tree:
// Prometheus metrics and OpenTelemetry traces around store notification
// fan-outs and dispatch passes. Everything is opt-in and wraps the
// existing contracts (cascade.Store, cascade.BatchFunc) without touching
// the core.
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cascade-dev/cascade/pkg/cascade"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cascade").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cascade",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for one subscription tree.
//
// Collected:
//   - cascade_notify_passes_total: dispatch passes run through the batch wrapper
//   - cascade_notify_duration_seconds: dispatch pass duration
//   - cascade_store_notifications_total: change notifications from the store
//   - cascade_store_listeners: listeners currently registered on the store
type Metrics struct {
	notifyPasses       prometheus.Counter
	notifyDuration     prometheus.Histogram
	storeNotifications prometheus.Counter
	storeListeners     prometheus.Gauge
}

// NewMetrics registers and returns the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		notifyPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_passes_total",
			Help:        "Total number of notification dispatch passes",
			ConstLabels: config.ConstLabels,
		}),

		notifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_duration_seconds",
			Help:        "Notification dispatch pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		storeNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_notifications_total",
			Help:        "Total number of change notifications from the store",
			ConstLabels: config.ConstLabels,
		}),

		storeListeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_listeners",
			Help:        "Number of listeners currently registered on the store",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// WrapBatch wraps a batch function so every dispatch pass is counted and
// timed. A nil next falls back to immediate dispatch.
func (m *Metrics) WrapBatch(next cascade.BatchFunc) cascade.BatchFunc {
	if next == nil {
		next = func(fn func()) { fn() }
	}
	return func(fn func()) {
		m.notifyPasses.Inc()
		start := time.Now()
		next(fn)
		m.notifyDuration.Observe(time.Since(start).Seconds())
	}
}

// WrapStore decorates a store so subscriptions and change notifications
// flowing through it are measured.
func (m *Metrics) WrapStore(s cascade.Store) cascade.Store {
	return &meteredStore{inner: s, metrics: m}
}

type meteredStore struct {
	inner   cascade.Store
	metrics *Metrics
}

func (s *meteredStore) GetState() any {
	return s.inner.GetState()
}

func (s *meteredStore) Subscribe(fn func()) func() {
	s.metrics.storeListeners.Inc()
	unsubscribe := s.inner.Subscribe(func() {
		s.metrics.storeNotifications.Inc()
		fn()
	})

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		s.metrics.storeListeners.Dec()
		unsubscribe()
	}
}
