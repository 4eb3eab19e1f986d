package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

var nameSeq int

// uniqueName gives every test its own registry key so wrapper reuse in one
// test cannot leak into another.
func uniqueName() string {
	nameSeq++
	return fmt.Sprintf("test-store-%d", nameSeq)
}

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func attrString(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func attrInt(attrs []attribute.KeyValue, key string) (int64, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsInt64(), true
		}
	}
	return 0, false
}

func TestTracedStorePreservesResults(t *testing.T) {
	newRecorder(t)
	ctx := context.Background()
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), nil)

	require.NoError(t, store.Set(ctx, "key", "pong"))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	require.NoError(t, store.Delete(ctx, "key"))

	_, err = store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTracedStoreEmitsCacheSpans(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), nil)

	store.Set(ctx, "health_check_key", "pong")
	store.Get(ctx, "health_check_key")
	store.Delete(ctx, "health_check_key")

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	wantOps := []string{"SET", "GET", "DELETE"}
	for i, span := range spans {
		attrs := span.Attributes()

		system, _ := attrString(attrs, telemetry.AttrDBSystem)
		assert.Equal(t, telemetry.CacheSystem, system)

		op, _ := attrString(attrs, telemetry.AttrCacheOperation)
		assert.Equal(t, wantOps[i], op)

		key, _ := attrString(attrs, telemetry.AttrCacheKey)
		assert.Equal(t, "health_check_key", key)

		argsLen, ok := attrInt(attrs, telemetry.AttrCacheArgsLen)
		assert.True(t, ok)
		assert.Greater(t, argsLen, int64(0))
	}
}

func TestTracedStoreAttachesCallerIdentity(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), nil)

	store.Set(ctx, "key", "value")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()

	fn, ok := attrString(attrs, telemetry.AttrCallerFunction)
	require.True(t, ok)
	assert.NotEmpty(t, fn)
	assert.Contains(t, fn, "TestTracedStoreAttachesCallerIdentity")

	file, ok := attrString(attrs, telemetry.AttrCallerFile)
	require.True(t, ok)
	assert.NotEmpty(t, file)

	line, ok := attrInt(attrs, telemetry.AttrCallerLine)
	require.True(t, ok)
	assert.Greater(t, line, int64(0))

	var foundEvent bool
	for _, event := range spans[0].Events() {
		if event.Name == telemetry.CacheOperationEvent {
			foundEvent = true
		}
	}
	assert.True(t, foundEvent, "enriched span should carry the operation event")
}

func TestTracedStoreSentinelWhenNoCallerResolvable(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()

	unresolvable := func() telemetry.Caller { return telemetry.UnknownCaller }
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), unresolvable)

	store.Set(ctx, "key", "value")

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	fn, ok := attrString(spans[0].Attributes(), telemetry.AttrCallerFunction)
	require.True(t, ok, "span still carries a caller attribute")
	assert.Equal(t, "unknown", fn)
}

func TestTracedStoreSurvivesFailingResolver(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()

	exploding := func() telemetry.Caller { panic("resolver failure") }
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), exploding)

	require.NoError(t, store.Set(ctx, "key", "pong"))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err, "enrichment failure must not affect the operation")
	assert.Equal(t, "pong", got)

	assert.Len(t, recorder.Ended(), 2, "datastore spans still exist")
}

func TestEnrichWithoutActiveSpanIsNoOp(t *testing.T) {
	newRecorder(t)

	assert.NotPanics(t, func() {
		Enrich(context.Background(), nil)
	})
}

func TestTracedIdempotent(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()
	name := uniqueName()

	raw := NewLRU(Config{Size: 8})
	first := Traced(name, raw, nil)
	second := Traced(name, raw, nil)
	third := Traced(name, first, nil)

	assert.Same(t, first, second, "repeated installation returns the original wrapper")
	assert.Same(t, first, third, "wrapping a wrapped store returns it unchanged")

	const calls = 4
	for i := 0; i < calls; i++ {
		second.Set(ctx, "key", "value")
	}
	assert.Len(t, recorder.Ended(), calls, "N calls emit exactly N spans")
}

func TestConcurrentSiblingsEnrichedIndependently(t *testing.T) {
	recorder := newRecorder(t)
	ctx := context.Background()
	store := Traced(uniqueName(), NewLRU(Config{Size: 8}), nil)

	var wg sync.WaitGroup
	keys := []string{"left", "right"}
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			store.Set(ctx, key, "value")
		}(key)
	}
	wg.Wait()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	seen := map[string]bool{}
	for _, span := range spans {
		key, _ := attrString(span.Attributes(), telemetry.AttrCacheKey)
		seen[key] = true

		fn, ok := attrString(span.Attributes(), telemetry.AttrCallerFunction)
		require.True(t, ok)
		assert.NotEmpty(t, fn, "each sibling carries its own caller identity")
	}
	assert.True(t, seen["left"] && seen["right"], "both siblings recorded")
}
