package otel

import (
	"context"
	"time"

	reflux "github.com/reflux-go/reflux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/reflux-go/reflux"
)

// Instrumentation implements reflux.MetricsHook using OpenTelemetry
type Instrumentation struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	dispatchCounter  metric.Int64Counter
	dispatchDuration metric.Float64Histogram
}

// Option configures the Instrumentation
type Option func(*Instrumentation)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(i *Instrumentation) {
		i.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(i *Instrumentation) {
		i.meter = provider.Meter(instrumentationName)
	}
}

// New creates a new OpenTelemetry instrumentation implementation
func New(opts ...Option) (*Instrumentation, error) {
	inst := &Instrumentation{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	// Apply options
	for _, opt := range opts {
		opt(inst)
	}

	// Initialize metrics
	var err error

	inst.dispatchCounter, err = inst.meter.Int64Counter(
		"reflux.dispatch.count",
		metric.WithDescription("Number of handled dispatches"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, err
	}

	inst.dispatchDuration, err = inst.meter.Float64Histogram(
		"reflux.dispatch.duration",
		metric.WithDescription("Handler execution duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return inst, nil
}

// OnDispatch is called after each handled dispatch completes. The dispatch is
// recorded as a counter increment, a duration sample, and a span covering the
// handler execution window.
func (i *Instrumentation) OnDispatch(definition, tag string, duration time.Duration) {
	ctx := context.Background()
	attrs := []attribute.KeyValue{
		attribute.String("store.definition", definition),
		attribute.String("action.tag", tag),
	}

	end := time.Now()
	_, span := i.tracer.Start(ctx, "reflux.dispatch: "+tag,
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))

	i.dispatchCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	i.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// Ensure Instrumentation implements reflux.MetricsHook
var _ reflux.MetricsHook = (*Instrumentation)(nil)
