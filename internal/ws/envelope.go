package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"hub-service/internal/models"
)

var errBadEnvelope = errors.New("malformed message envelope")

var validTypes = map[string]bool{
	"text":         true,
	"image":        true,
	"file":         true,
	"notification": true,
}

// inbound is the client-to-hub message shape on the websocket.
type inbound struct {
	Kind        string `json:"kind"`
	RecipientID int    `json:"recipient_id,omitempty"`
	RoomID      string `json:"room_id,omitempty"`
	Exclude     []int  `json:"exclude,omitempty"`
	Type        string `json:"type,omitempty"`
	Content     string `json:"content"`
}

// event is the hub-to-client message shape; routing carries it as the opaque
// payload.
type event struct {
	Kind      string    `json:"kind"`
	SenderID  int       `json:"sender_id"`
	RoomID    string    `json:"room_id,omitempty"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// parseInbound validates a raw client frame and turns it into a routing
// request. Script tags are stripped from content before fan-out.
func parseInbound(raw []byte, senderID int) (models.Message, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Message{}, errBadEnvelope
	}
	if in.Content == "" {
		return models.Message{}, errBadEnvelope
	}
	if in.Type == "" {
		in.Type = "text"
	}
	if !validTypes[in.Type] {
		return models.Message{}, errBadEnvelope
	}

	var dest models.Destination
	switch in.Kind {
	case "direct":
		dest = models.DirectTo(in.RecipientID)
	case "room":
		dest = models.RoomTo(in.RoomID)
	case "broadcast":
		dest = models.BroadcastTo(in.Exclude...)
	default:
		return models.Message{}, errBadEnvelope
	}

	now := time.Now()
	content := strings.ReplaceAll(in.Content, "<script>", "")
	content = strings.ReplaceAll(content, "</script>", "")

	payload, err := json.Marshal(event{
		Kind:      in.Kind,
		SenderID:  senderID,
		RoomID:    in.RoomID,
		Type:      in.Type,
		Content:   content,
		Timestamp: now,
	})
	if err != nil {
		return models.Message{}, err
	}

	return models.Message{
		SenderID:    senderID,
		Destination: dest,
		Type:        in.Type,
		Payload:     payload,
		Timestamp:   now,
	}, nil
}
