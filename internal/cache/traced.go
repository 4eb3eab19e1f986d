package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

// Resolver reports the application code responsible for a cache call.
// Swappable so tests can simulate resolution failures.
type Resolver func() telemetry.Caller

// tracedStore opens a datastore span around each operation of the wrapped
// Store and enriches it with caller identity. It replaces the runtime
// patching of cache methods with an explicit composition point.
type tracedStore struct {
	next     Store
	resolver Resolver
}

var (
	wrappedMu sync.Mutex
	wrapped   = make(map[string]*tracedStore)
)

// Traced wraps store so every Get/Set/Delete runs inside a cache span
// carrying command name, key, argument count, and caller identity.
// Wrapping is idempotent: an already traced store passes through unchanged,
// and repeated installation under the same name returns the wrapper created
// the first time, so N calls emit exactly N spans no matter how often setup
// ran.
func Traced(name string, store Store, resolver Resolver) Store {
	if t, ok := store.(*tracedStore); ok {
		return t
	}

	wrappedMu.Lock()
	defer wrappedMu.Unlock()
	if t, ok := wrapped[name]; ok {
		return t
	}

	if resolver == nil {
		resolver = telemetry.ResolveCaller
	}
	t := &tracedStore{next: store, resolver: resolver}
	wrapped[name] = t
	telemetry.DefaultRegistry().Once("cache.traced:" + name)
	return t
}

func (t *tracedStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := t.startSpan(ctx, "GET", key, 1)
	defer span.End()

	value, err := t.next.Get(ctx, key)
	if err == ErrNotFound {
		// A miss is a normal outcome, not an operation failure.
		span.SetAttributes(attribute.Bool("db.cache.hit", false))
		span.SetStatus(codes.Ok, "")
		return value, err
	}
	finishSpan(span, err)
	if err == nil {
		span.SetAttributes(attribute.Bool("db.cache.hit", true))
	}
	return value, err
}

func (t *tracedStore) Set(ctx context.Context, key, value string) error {
	ctx, span := t.startSpan(ctx, "SET", key, 2)
	defer span.End()

	err := t.next.Set(ctx, key, value)
	finishSpan(span, err)
	return err
}

func (t *tracedStore) Delete(ctx context.Context, key string) error {
	ctx, span := t.startSpan(ctx, "DELETE", key, 1)
	defer span.End()

	err := t.next.Delete(ctx, key)
	finishSpan(span, err)
	return err
}

// startSpan opens the datastore span with the standard command attributes
// and enriches it with caller identity before the operation runs.
func (t *tracedStore) startSpan(ctx context.Context, op, key string, args int) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(telemetry.AttrDBSystem, telemetry.CacheSystem),
			attribute.String(telemetry.AttrCacheOperation, op),
			attribute.String(telemetry.AttrCacheKey, key),
			attribute.Int(telemetry.AttrCacheArgsLen, args),
		),
	)
	Enrich(ctx, t.resolver)
	return ctx, span
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// Enrich attaches the caller's function, file, and line to the datastore
// span active on ctx and emits the descriptive operation event. It never
// creates a span: when no span is recording it is a no-op. Any failure,
// including a panicking resolver, is discarded so enrichment can never be a
// cause of application failure.
func Enrich(ctx context.Context, resolver Resolver) {
	defer func() { _ = recover() }()

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	if resolver == nil {
		resolver = telemetry.ResolveCaller
	}

	caller := resolver()
	attrs := []attribute.KeyValue{
		attribute.String(telemetry.AttrCallerFunction, caller.Function),
		attribute.String(telemetry.AttrCallerFile, caller.File),
		attribute.Int(telemetry.AttrCallerLine, caller.Line),
	}
	span.SetAttributes(attrs...)
	span.AddEvent(telemetry.CacheOperationEvent, trace.WithAttributes(attrs...))
}
