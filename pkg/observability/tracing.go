package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer provides distributed tracing capabilities.
// A nil *Tracer is valid and produces no spans.
type Tracer struct {
	serviceName string
	tracer      trace.Tracer
}

// NewTracer creates a tracer backed by the global provider
func NewTracer(serviceName string) *Tracer {
	return NewTracerWithProvider(serviceName, otel.GetTracerProvider())
}

// NewTracerWithProvider creates a tracer backed by an explicit provider
func NewTracerWithProvider(serviceName string, provider trace.TracerProvider) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		tracer:      provider.Tracer(serviceName),
	}
}

// Start opens a span named "<service>.<name>"
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, t.serviceName+"."+name, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and closes it
func (t *Tracer) End(span trace.Span, err error) {
	if t == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
