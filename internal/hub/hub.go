package hub

import (
	"context"
	"errors"
	"log"
	"time"

	"hub-service/internal/models"
	"hub-service/internal/observability"
	"hub-service/internal/presence"
	"hub-service/internal/queue"
	"hub-service/internal/rooms"
)

// ErrInvalidDestination is returned when a routing request names no
// destination, or more than one.
var ErrInvalidDestination = errors.New("invalid destination")

// Hub is the single routing entry point. It classifies messages by their
// destination descriptor, pushes to live connections, falls back to the
// offline queue, and drives presence transitions from connect/disconnect
// events.
type Hub struct {
	registry *Registry
	rooms    *rooms.Manager
	presence *presence.Tracker
	queue    *queue.Queue
}

// New wires the hub to its collaborators.
func New(registry *Registry, roomMgr *rooms.Manager, tracker *presence.Tracker, backlog *queue.Queue) *Hub {
	return &Hub{registry: registry, rooms: roomMgr, presence: tracker, queue: backlog}
}

// Register adds a live connection for userID and returns its id. The first
// connection transitions the user online; any backlog queued while the user
// was offline is drained through the new connection.
func (h *Hub) Register(ctx context.Context, userID int, transport Transport) (string, error) {
	conn, first, err := h.registry.Add(userID, transport)
	if err != nil {
		observability.IncRegisterRejected()
		return "", err
	}
	observability.IncActiveConnections()

	if first {
		h.presence.SetOnline(userID)
		h.publishPresence(ctx, userID, models.StateOnline)
	}

	h.drainBacklog(ctx, userID, conn)
	return conn.ID, nil
}

// Unregister removes a connection. Unknown ids are a no-op: a disconnect may
// race the cleanup that follows a failed send. The user transitions offline
// exactly when the pool empties.
func (h *Hub) Unregister(ctx context.Context, connID string) {
	userID, last, ok := h.registry.Remove(connID)
	if !ok {
		return
	}
	observability.DecActiveConnections()

	if last {
		h.presence.SetOffline(userID)
		h.publishPresence(ctx, userID, models.StateOffline)
	}
}

// Touch records activity on a connection, keeping the owner's last-seen fresh.
func (h *Hub) Touch(connID string) {
	if userID, ok := h.registry.Touch(connID); ok {
		h.presence.TouchActivity(userID)
	}
}

// Route validates the destination descriptor and delivers the message. Partial
// delivery failures never abort sibling deliveries; they come back in the
// report instead.
func (h *Hub) Route(ctx context.Context, msg models.Message) (models.DeliveryReport, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	var report models.DeliveryReport
	dest := msg.Destination

	targets := 0
	if dest.UserID != 0 {
		targets++
	}
	if dest.RoomID != "" {
		targets++
	}
	if dest.Broadcast {
		targets++
	}
	if targets != 1 {
		observability.IncRouted("invalid", "rejected")
		return report, ErrInvalidDestination
	}

	switch {
	case dest.UserID != 0:
		if err := h.deliverToUser(ctx, dest.UserID, msg, &report); err != nil {
			return report, err
		}
		h.countOutcomes("direct", report)

	case dest.RoomID != "":
		members, err := h.rooms.MembersOf(dest.RoomID)
		if err != nil {
			return report, err
		}
		for _, member := range members {
			// queuing is per-member: offline members each get their own copy
			if err := h.deliverToUser(ctx, member, msg, &report); err != nil {
				report.Failures = append(report.Failures, models.DeliveryFailure{
					UserID: member,
					Reason: err.Error(),
				})
			}
		}
		h.countOutcomes("room", report)

	default:
		// broadcast is ephemeral: live push only, never queued
		for _, conn := range h.registry.All(dest.Exclude) {
			h.push(conn, msg.Payload, &report)
		}
		h.countOutcomes("broadcast", report)
	}

	return report, nil
}

// deliverToUser pushes to every live connection of the user, or queues the
// message when none exist. A failed enqueue is returned so direct sends can
// refuse to ack an unconfirmed message.
func (h *Hub) deliverToUser(ctx context.Context, userID int, msg models.Message, report *models.DeliveryReport) error {
	conns := h.registry.ConnectionsOf(userID)
	if len(conns) == 0 {
		evicted, err := h.queue.Enqueue(ctx, models.QueuedMessage{
			SenderID:    msg.SenderID,
			RecipientID: userID,
			RoomID:      msg.Destination.RoomID,
			Type:        msg.Type,
			Payload:     msg.Payload,
		})
		if err != nil {
			return err
		}
		report.Queued++
		if evicted {
			report.Evicted++
			observability.IncQueueEviction()
		}
		return nil
	}

	for _, conn := range conns {
		h.push(conn, msg.Payload, report)
	}
	return nil
}

// push attempts one transport send. Failures are reported, the connection is
// closed and unregistered, and siblings are unaffected.
func (h *Hub) push(conn *Connection, payload []byte, report *models.DeliveryReport) {
	if err := conn.Transport.Send(payload); err != nil {
		log.Printf("delivery failed conn=%s user=%d: %v", conn.ID, conn.UserID, err)
		report.Failures = append(report.Failures, models.DeliveryFailure{
			ConnectionID: conn.ID,
			UserID:       conn.UserID,
			Reason:       err.Error(),
		})
		_ = conn.Transport.Close()
		h.Unregister(context.Background(), conn.ID)
		return
	}
	report.Delivered++
}

// drainBacklog delivers queued messages through the newly established
// connection in FIFO order. Best-effort per item: one failure does not abort
// the drain.
func (h *Hub) drainBacklog(ctx context.Context, userID int, conn *Connection) {
	items := h.queue.Drain(userID)
	if len(items) == 0 {
		return
	}

	log.Printf("draining backlog user=%d messages=%d", userID, len(items))
	for i := range items {
		if err := conn.Transport.Send(items[i].Payload); err != nil {
			log.Printf("backlog delivery failed user=%d seq=%d: %v", userID, items[i].Sequence, err)
			observability.IncRouted("drain", "failed")
			continue
		}
		h.queue.MarkDelivered(ctx, &items[i])
		observability.IncRouted("drain", "delivered")
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID int) bool {
	return h.registry.IsOnline(userID)
}

// PoolSize returns the user's live connection count.
func (h *Hub) PoolSize(userID int) int {
	return h.registry.CountFor(userID)
}

// QueueSize returns the user's offline backlog length.
func (h *Hub) QueueSize(userID int) int {
	return h.queue.SizeOf(userID)
}

// Stats aggregates pool and backlog occupancy for the stats endpoint.
type Stats struct {
	Connections RegistryStats `json:"connections"`
	Queue       queue.Stats   `json:"queue"`
	OnlineUsers []int         `json:"online_users"`
}

// Stats returns an observability snapshot.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections: h.registry.Stats(),
		Queue:       h.queue.TotalStats(),
		OnlineUsers: h.presence.Online(),
	}
}

func (h *Hub) countOutcomes(kind string, report models.DeliveryReport) {
	if report.Delivered > 0 {
		observability.AddRouted(kind, "delivered", report.Delivered)
	}
	if report.Queued > 0 {
		observability.AddRouted(kind, "queued", report.Queued)
	}
	if len(report.Failures) > 0 {
		observability.AddRouted(kind, "failed", len(report.Failures))
	}
}

func (h *Hub) publishPresence(ctx context.Context, userID int, state models.PresenceState) {
	observability.IncPresenceTransition(string(state))
	_ = observability.PublishEvent(ctx, "presence."+string(state), observability.EventEnvelope{
		EventType: "presence_events",
		EventName: string(state),
		Payload: map[string]interface{}{
			"user_id": userID,
			"state":   string(state),
		},
	}, nil)
}
