package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestCacheSpanProcessorTagsCacheSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewCacheSpanProcessor("vm-websocket", nil)),
		sdktrace.WithSpanProcessor(recorder),
	)
	tracer := provider.Tracer("test")

	_, span := tracer.Start(context.Background(), "cache.GET",
		trace.WithAttributes(attribute.String(AttrDBSystem, CacheSystem)),
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	tag, ok := attrValue(spans[0].Attributes(), AttrServiceTag)
	require.True(t, ok, "cache span should carry the service tag")
	assert.Equal(t, "vm-websocket", tag.AsString())
}

func TestCacheSpanProcessorIgnoresOtherSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewCacheSpanProcessor("vm-websocket", nil)),
		sdktrace.WithSpanProcessor(recorder),
	)
	tracer := provider.Tracer("test")

	_, span := tracer.Start(context.Background(), "http.request")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	_, ok := attrValue(spans[0].Attributes(), AttrServiceTag)
	assert.False(t, ok, "non-cache spans must pass through untouched")
}
