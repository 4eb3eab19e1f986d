package terminal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

// tracedSession wraps every method of a Session in a span, the wrapper-struct
// replacement for rewriting methods at runtime. The wrapped session's
// behavior, results, and errors pass through unchanged.
type tracedSession struct {
	next Session
}

// Instrument wraps session so each operation runs inside a span named
// Session.<method> and tagged with the session id. Instrumenting an already
// instrumented session returns it unchanged, so applying twice behaves
// exactly like applying once.
func Instrument(session Session) Session {
	if t, ok := session.(*tracedSession); ok {
		return t
	}
	return &tracedSession{next: session}
}

func (t *tracedSession) ID() string { return t.next.ID() }

func (t *tracedSession) Write(ctx context.Context, input []byte) error {
	return telemetry.WithSpan(ctx, "Session.Write", func(ctx context.Context) error {
		telemetry.SpanAttributes(ctx,
			attribute.String("terminal.session_id", t.next.ID()),
			attribute.Int("terminal.input_bytes", len(input)),
		)
		return t.next.Write(ctx, input)
	})
}

func (t *tracedSession) Read(ctx context.Context, p []byte) (int, error) {
	return telemetry.WithSpanValue(ctx, "Session.Read", func(ctx context.Context) (int, error) {
		telemetry.SpanAttributes(ctx,
			attribute.String("terminal.session_id", t.next.ID()),
		)
		return t.next.Read(ctx, p)
	})
}

func (t *tracedSession) Resize(ctx context.Context, cols, rows int) error {
	return telemetry.WithSpan(ctx, "Session.Resize", func(ctx context.Context) error {
		telemetry.SpanAttributes(ctx,
			attribute.String("terminal.session_id", t.next.ID()),
			attribute.Int("terminal.cols", cols),
			attribute.Int("terminal.rows", rows),
		)
		return t.next.Resize(ctx, cols, rows)
	})
}

func (t *tracedSession) Close(ctx context.Context) error {
	return telemetry.WithSpan(ctx, "Session.Close", func(ctx context.Context) error {
		telemetry.SpanAttributes(ctx,
			attribute.String("terminal.session_id", t.next.ID()),
		)
		return t.next.Close(ctx)
	})
}
