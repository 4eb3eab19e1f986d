package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

// Bridge owns the trace lifecycle of one websocket connection. No framework
// instrumentation exists for this protocol, so the bridge opens the
// connection-level span itself, parents a child span under it for every
// significant event, and guarantees that nothing is left open when the
// connection terminates, however it terminates.
type Bridge struct {
	connID  string
	ctx     context.Context
	session trace.Span

	mu   sync.Mutex
	open map[trace.Span]struct{}
}

// Open starts the connection-level span and binds it as the active context
// for the connection's entire lifetime. The returned context parents every
// event span and every call made while serving this connection.
func Open(ctx context.Context, connID string) (*Bridge, context.Context) {
	b := &Bridge{
		connID: connID,
		open:   make(map[trace.Span]struct{}),
	}

	// The connect event is its own short span, mirroring the handshake.
	ctx, connect := telemetry.Tracer().Start(ctx, "websocket.connect",
		trace.WithAttributes(attribute.String("ws.connection_id", connID)),
	)
	connect.SetStatus(codes.Ok, "")
	connect.End()

	b.ctx, b.session = telemetry.Tracer().Start(ctx, "websocket.session",
		trace.WithAttributes(attribute.String("ws.connection_id", connID)),
	)
	return b, b.ctx
}

// Event opens a child span for a connection event (receive, send,
// disconnect). The span is tracked until EndEvent so teardown can close any
// event still in flight.
func (b *Bridge) Event(name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(b.ctx, name, trace.WithAttributes(attrs...))

	b.mu.Lock()
	b.open[span] = struct{}{}
	b.mu.Unlock()
	return ctx, span
}

// EndEvent closes an event span with OK or ERROR depending on err.
func (b *Bridge) EndEvent(span trace.Span, err error) {
	b.mu.Lock()
	delete(b.open, span)
	b.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// WithEvent runs fn inside an event span. The error passes through.
func (b *Bridge) WithEvent(name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := b.Event(name, attrs...)
	err := fn(ctx)
	b.EndEvent(span, err)
	return err
}

// LinkRemote attaches the trace context carried by the client's first
// message to the session span, correlating the browser's trace with the
// connection's.
func (b *Bridge) LinkRemote(remote trace.SpanContext) {
	if remote.IsValid() {
		b.session.AddLink(trace.Link{SpanContext: remote})
	}
}

// Close tears the connection trace down. Every event span still open is
// closed with ERROR status, then the session span itself ends: OK for a
// graceful close, ERROR when err reports an abnormal termination. Safe to
// call exactly once per connection; nothing remains open afterwards.
func (b *Bridge) Close(err error) {
	b.mu.Lock()
	dangling := make([]trace.Span, 0, len(b.open))
	for span := range b.open {
		dangling = append(dangling, span)
	}
	b.open = make(map[trace.Span]struct{})
	b.mu.Unlock()

	for _, span := range dangling {
		span.SetStatus(codes.Error, "connection terminated")
		span.End()
	}

	_, disconnect := telemetry.Tracer().Start(b.ctx, "websocket.disconnect")
	if err != nil {
		disconnect.RecordError(err)
		disconnect.SetStatus(codes.Error, err.Error())
	} else {
		disconnect.SetStatus(codes.Ok, "")
	}
	disconnect.End()

	if err != nil {
		b.session.RecordError(err)
		b.session.SetStatus(codes.Error, err.Error())
	} else {
		b.session.SetStatus(codes.Ok, "websocket session completed")
	}
	b.session.End()
}

// ExtractTraceparent pulls a W3C traceparent out of a JSON text message.
// Returns an invalid SpanContext when the message is not JSON or carries no
// usable context.
func ExtractTraceparent(text []byte) trace.SpanContext {
	var msg map[string]any
	if err := json.Unmarshal(text, &msg); err != nil {
		return trace.SpanContext{}
	}
	traceparent, ok := msg["traceparent"].(string)
	if !ok {
		return trace.SpanContext{}
	}

	carrier := propagation.MapCarrier{"traceparent": traceparent}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
	return trace.SpanContextFromContext(ctx)
}

// InjectTraceparent adds the active trace context to an outbound JSON text
// message so the browser can correlate server spans. Non-JSON payloads pass
// through untouched.
func InjectTraceparent(ctx context.Context, text []byte) []byte {
	var msg map[string]any
	if err := json.Unmarshal(text, &msg); err != nil {
		return text
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	traceparent, ok := carrier["traceparent"]
	if !ok {
		return text
	}

	msg["traceparent"] = traceparent
	out, err := json.Marshal(msg)
	if err != nil {
		return text
	}
	return out
}
