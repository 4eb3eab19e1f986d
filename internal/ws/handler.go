package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/agusmakmun/vmwebsocket/internal/logging"
	"github.com/agusmakmun/vmwebsocket/internal/monitoring"
	"github.com/agusmakmun/vmwebsocket/internal/shared/id"
	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
	"github.com/agusmakmun/vmwebsocket/internal/terminal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// controlMessage is the JSON shape of inbound non-keystroke messages.
type controlMessage struct {
	Type        string `json:"type"`
	Cols        int    `json:"cols"`
	Rows        int    `json:"rows"`
	Traceparent string `json:"traceparent"`
}

// Handler upgrades browser connections and relays them to terminal sessions.
type Handler struct {
	manager *terminal.Manager
	metrics *monitoring.Metrics
	logger  *logging.Logger
	shell   string
}

// NewHandler creates a websocket handler backed by the given session manager.
func NewHandler(manager *terminal.Manager, metrics *monitoring.Metrics, logger *logging.Logger, shell string) *Handler {
	return &Handler{manager: manager, metrics: metrics, logger: logger, shell: shell}
}

// HandleConnection upgrades the request and serves the terminal relay until
// the client disconnects. The whole connection runs under a session span
// owned by the Bridge; every inbound and outbound message is a child span.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := id.NewConnectionID()
	bridge, ctx := Open(c.Request.Context(), connID)
	h.metrics.WSConnectionOpened()
	defer h.metrics.WSConnectionClosed()

	h.logger.Info("websocket connected", zap.String("connection_id", connID))

	relay := newRelay(conn, bridge, h.metrics)
	relay.sendJSON(ctx, map[string]any{
		"message": "WebSocket connected. Starting terminal session...",
	})

	session, err := h.createSession(ctx)
	if err != nil {
		h.logger.Error("failed to start terminal session",
			zap.String("connection_id", connID), zap.Error(err))
		relay.sendJSON(ctx, map[string]any{"message": "terminal error: " + err.Error()})
		bridge.Close(err)
		return
	}
	defer h.manager.Remove(context.Background(), session.ID())

	relay.sendJSON(ctx, map[string]any{
		"message":    "Terminal session started",
		"session_id": session.ID(),
	})

	// Stream terminal output back to the browser on its own goroutine, with
	// the span held across every blocking read.
	streamDone := telemetry.Go(ctx, "terminal.stream", func(ctx context.Context) error {
		return relay.pumpOutput(ctx, session)
	})

	readErr := relay.readLoop(session)

	session.Close(context.Background())
	<-streamDone

	if isAbnormalClose(readErr) {
		h.logger.Warn("websocket closed abnormally",
			zap.String("connection_id", connID), zap.Error(readErr))
		bridge.Close(readErr)
		return
	}
	h.logger.Info("websocket disconnected", zap.String("connection_id", connID))
	bridge.Close(nil)
}

func (h *Handler) createSession(ctx context.Context) (terminal.Session, error) {
	session, err := telemetry.WithSpanValue(ctx, "Session.Create",
		func(context.Context) (terminal.Session, error) {
			return h.manager.Create(terminal.Options{Shell: h.shell})
		})
	if err != nil {
		return nil, err
	}
	return terminal.Instrument(session), nil
}

// isAbnormalClose reports whether the read loop ended for any reason other
// than a clean close handshake. Raw network errors count as abnormal.
func isAbnormalClose(err error) bool {
	if err == nil {
		return false
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code != websocket.CloseNormalClosure &&
			closeErr.Code != websocket.CloseGoingAway
	}
	return true
}

// relay moves bytes between one websocket connection and one terminal
// session.
type relay struct {
	conn    *websocket.Conn
	bridge  *Bridge
	metrics *monitoring.Metrics

	writeMu sync.Mutex
	started bool // first input injects a newline to wake the shell prompt
	linked  bool // the first message may carry the client's traceparent
}

func newRelay(conn *websocket.Conn, bridge *Bridge, metrics *monitoring.Metrics) *relay {
	return &relay{conn: conn, bridge: bridge, metrics: metrics}
}

// readLoop forwards browser input to the terminal until the connection
// drops. Returns the read error that ended the loop.
func (r *relay) readLoop(session terminal.Session) error {
	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			return err
		}
		r.metrics.WSMessageReceived()

		if messageType == websocket.TextMessage && r.handleControl(session, data) {
			continue
		}

		input := data
		if !r.started {
			input = append([]byte("\n"), data...)
			r.started = true
		}

		r.bridge.WithEvent("websocket.receive", func(ctx context.Context) error {
			return session.Write(ctx, input)
		}, attribute.Int("ws.message_bytes", len(data)))
	}
}

// handleControl consumes JSON control messages (resize, traceparent).
// Returns false for plain keystroke payloads so they reach the terminal.
func (r *relay) handleControl(session terminal.Session, data []byte) bool {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return false
	}

	if !r.linked && msg.Traceparent != "" {
		r.bridge.LinkRemote(ExtractTraceparent(data))
		r.linked = true
		if msg.Type == "" {
			return true
		}
	}

	if msg.Type == "resize" {
		r.bridge.WithEvent("websocket.resize", func(ctx context.Context) error {
			return session.Resize(ctx, msg.Cols, msg.Rows)
		}, attribute.Int("terminal.cols", msg.Cols), attribute.Int("terminal.rows", msg.Rows))
		return true
	}
	return msg.Type != ""
}

// pumpOutput streams terminal output to the browser until the session ends.
func (r *relay) pumpOutput(ctx context.Context, session terminal.Session) error {
	buf := make([]byte, 4096)
	for {
		n, err := session.Read(ctx, buf)
		if err != nil {
			// The terminal ending is the normal end of the stream.
			return nil
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		sendErr := r.bridge.WithEvent("websocket.send", func(context.Context) error {
			return r.writeMessage(websocket.BinaryMessage, chunk)
		}, attribute.Int("ws.message_bytes", n))
		if sendErr != nil {
			return sendErr
		}
		r.metrics.WSMessageSent()
	}
}

// sendJSON sends a JSON text message with the active trace context injected.
func (r *relay) sendJSON(ctx context.Context, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	data = InjectTraceparent(ctx, data)

	r.bridge.WithEvent("websocket.send", func(context.Context) error {
		return r.writeMessage(websocket.TextMessage, data)
	}, attribute.Int("ws.message_bytes", len(data)))
	r.metrics.WSMessageSent()
}

func (r *relay) writeMessage(messageType int, data []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(messageType, data)
}
