package models

import "time"

// Message is an in-flight routing request. It lives for the duration of one
// Route call and is never persisted unless it becomes a QueuedMessage.
type Message struct {
	SenderID    int         `json:"sender_id"`
	Destination Destination `json:"destination"`
	Type        string      `json:"type"`
	Payload     []byte      `json:"payload"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Destination is a tagged variant: exactly one of UserID, RoomID or Broadcast
// must be set.
type Destination struct {
	UserID    int         `json:"user_id,omitempty"`
	RoomID    string      `json:"room_id,omitempty"`
	Broadcast bool        `json:"broadcast,omitempty"`
	Exclude   map[int]bool `json:"exclude,omitempty"`
}

// DirectTo builds a destination for a single user.
func DirectTo(userID int) Destination {
	return Destination{UserID: userID}
}

// RoomTo builds a destination for a room.
func RoomTo(roomID string) Destination {
	return Destination{RoomID: roomID}
}

// BroadcastTo builds a broadcast destination excluding the given users.
func BroadcastTo(exclude ...int) Destination {
	dest := Destination{Broadcast: true}
	if len(exclude) > 0 {
		dest.Exclude = make(map[int]bool, len(exclude))
		for _, id := range exclude {
			dest.Exclude[id] = true
		}
	}
	return dest
}

// DeliveryFailure records one failed push to a live connection.
type DeliveryFailure struct {
	ConnectionID string `json:"connection_id"`
	UserID       int    `json:"user_id"`
	Reason       string `json:"reason"`
}

// DeliveryReport summarises the outcome of one Route call.
type DeliveryReport struct {
	Delivered int               `json:"delivered"`
	Queued    int               `json:"queued"`
	Evicted   int               `json:"evicted"`
	Failures  []DeliveryFailure `json:"failures,omitempty"`
}
