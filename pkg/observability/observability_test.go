package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCollector_RecordOperation(t *testing.T) {
	c := NewCollector("graphstore_test")

	c.RecordOperation("create_node", time.Now(), nil)
	c.RecordOperation("create_node", time.Now(), nil)
	c.RecordOperation("create_node", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("create_node", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("create_node", "error")))
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector("graphstore_test")

	c.SetGraphSize(3, 2)
	c.SetSchemaCount(4)
	c.RecordPublish(5, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Nodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Edges))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Schemas))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.EventsPublished.WithLabelValues("success")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	a := NewCollector("graphstore_test")
	b := NewCollector("graphstore_test")

	a.SetGraphSize(1, 1)

	assert.NotSame(t, a.Registry(), b.Registry())
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Nodes))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordOperation("x", time.Now(), nil)
		c.SetGraphSize(1, 1)
		c.SetSchemaCount(1)
		c.ObserveVisited("x", 1)
		c.RecordPublish(1, nil)
	})
	assert.Nil(t, c.Registry())
}

func TestTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewTracerWithProvider("graphstore", provider)

	_, span := tracer.Start(context.Background(), "find_paths")
	tracer.End(span, errors.New("cancelled"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphstore.find_paths", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracer_NilIsNoop(t *testing.T) {
	var tracer *Tracer

	ctx, span := tracer.Start(context.Background(), "noop")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { tracer.End(span, nil) })
}
