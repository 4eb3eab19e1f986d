package telemetry

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// scopeName identifies this instrumentation scope on every span it opens.
const scopeName = "github.com/agusmakmun/vmwebsocket/internal/telemetry"

// Tracer returns the tracer for the instrumentation scope. Resolved through
// the global provider on every call so tests can install their own provider.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// WithSpan runs fn inside a span, blocking until it returns. The span is
// activated on the context passed to fn, so nested calls parent under it.
// On a nil return the span status is OK; a non-nil error is recorded as an
// error event, the status is set to ERROR, and the error is returned
// unchanged. A panic inside fn is recorded the same way and re-panicked.
// The span is ended exactly once on every path.
//
// If name is empty the span is named after fn's function.
func WithSpan(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := startSpan(ctx, name, fn)
	defer span.End()

	defer recordPanic(span)
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// WithSpanValue is WithSpan for callables that return a value alongside the
// error. The value and error pass through unchanged.
func WithSpanValue[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := startSpan(ctx, name, fn)
	defer span.End()

	defer recordPanic(span)
	result, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// Go runs fn on its own goroutine inside a span attached to the derived
// context, so the span stays current across every blocking point inside fn.
// The returned channel delivers fn's outcome once and is then closed.
// Status and error semantics match WithSpan.
func Go(ctx context.Context, name string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	ctx, span := startSpan(ctx, name, fn)

	go func() {
		defer close(done)
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				done <- err
			}
		}()

		if err := fn(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			done <- err
			return
		}
		span.SetStatus(codes.Ok, "")
		done <- nil
	}()

	return done
}

// SpanAttributes sets attributes on the span active on ctx. A no-op when no
// span is recording.
func SpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// startSpan opens a span named for fn (unless an explicit name is given)
// and tags it with the code location of the wrapped callable.
func startSpan(ctx context.Context, name string, fn any) (context.Context, trace.Span) {
	file, line, qualified := callableLocation(fn)
	if name == "" {
		name = qualified
	}

	ctx, span := Tracer().Start(ctx, name)
	span.SetAttributes(
		attribute.String("code.function", name),
		attribute.String("code.namespace", qualified),
		attribute.String("code.filepath", file),
		attribute.Int("code.lineno", line),
	)
	return ctx, span
}

// callableLocation reports where fn is defined. Falls back to "anonymous"
// when fn is not introspectable.
func callableLocation(fn any) (file string, line int, name string) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "unknown", 0, "anonymous"
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "unknown", 0, "anonymous"
	}
	file, line = rf.FileLine(rf.Entry())
	return file, line, rf.Name()
}

// recordPanic converts a panic inside a wrapped callable into an error event
// and ERROR status before re-panicking. Must run before the span's End.
func recordPanic(span trace.Span) {
	if r := recover(); r != nil {
		err := fmt.Errorf("panic: %v", r)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		panic(r)
	}
}
