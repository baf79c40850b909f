package instrument

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cascade-dev/cascade/pkg/cascade"
)

// Default tracer name for cascade applications.
const defaultTracerName = "cascade"

// TraceConfig configures the OpenTelemetry instrumentation.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "cascade").
	TracerName string

	// SpanName is the name given to each fan-out span
	// (default: "cascade.notify").
	SpanName string

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// TracerProvider supplies the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TraceOption configures the OpenTelemetry instrumentation.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithSpanName sets the per-fan-out span name.
func WithSpanName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.SpanName = name
	}
}

// WithAttributes sets attributes added to every span.
func WithAttributes(attrs ...attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.Attributes = attrs
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(c *TraceConfig) {
		c.TracerProvider = tp
	}
}

func defaultTraceConfig() TraceConfig {
	return TraceConfig{
		TracerName: defaultTracerName,
		SpanName:   "cascade.notify",
	}
}

// TraceStore decorates a store so each change notification fan-out is
// wrapped in a span. The span covers the root subscription's entire
// top-down dispatch, since the whole wave runs synchronously inside the
// store's listener callback.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// supplied. Configure the global provider in main() before wiring:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func TraceStore(s cascade.Store, opts ...TraceOption) cascade.Store {
	config := defaultTraceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return &tracedStore{inner: s, config: config}
}

type tracedStore struct {
	inner  cascade.Store
	config TraceConfig
}

func (s *tracedStore) GetState() any {
	return s.inner.GetState()
}

func (s *tracedStore) Subscribe(fn func()) func() {
	return s.inner.Subscribe(func() {
		_, span := s.config.tracer.Start(context.Background(), s.config.SpanName,
			trace.WithAttributes(s.config.Attributes...))
		defer span.End()

		fn()
	})
}
