package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"hub-service/internal/hub"
	"hub-service/internal/observability"
)

// Handler terminates websocket connections and feeds the hub.
type Handler struct {
	hub *hub.Hub
}

// NewHandler constructs a websocket Handler.
func NewHandler(h *hub.Hub) *Handler {
	return &Handler{hub: h}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers it with the hub, and runs the read
// loop until the peer goes away.
func (h *Handler) Handle(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx, span := otel.Tracer("hub-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	t := newTransport(conn)
	connID, err := h.hub.Register(ctx, userID, t)
	if err != nil {
		if errors.Is(err, hub.ErrPoolExhausted) {
			// terminal for this attempt, tell the client not to retry
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit reached"), deadline)
		}
		conn.Close()
		return
	}

	info := ConnInfo{
		ConnID:      connID,
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.publishWSEvent(ctx, info, "ws_connect", "")

	go h.readLoop(info, conn, t)
}

func (h *Handler) readLoop(info ConnInfo, conn *websocket.Conn, t *transport) {
	var closeReason string
	defer func() {
		h.hub.Unregister(context.Background(), info.ConnID)
		h.publishWSEvent(context.Background(), info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.publishWSEvent(context.Background(), info, "ws_error", closeReason)
			}
			return
		}

		h.hub.Touch(info.ConnID)

		msg, err := parseInbound(raw, info.UserID)
		if err != nil {
			h.reply(t, gin.H{"error": err.Error()})
			continue
		}

		report, err := h.hub.Route(context.Background(), msg)
		if err != nil {
			h.reply(t, gin.H{"error": err.Error()})
			continue
		}
		h.reply(t, gin.H{"ack": report})
	}
}

// reply shares the transport mutex with routed deliveries so the connection
// never sees two concurrent writers.
func (h *Handler) reply(t *transport, body gin.H) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	if err := t.Send(payload); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}

func (h *Handler) publishWSEvent(ctx context.Context, info ConnInfo, name, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.hub", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id": info.UserID,
				"ip":      info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
