package models

import "time"

// QueuedMessage is a message held for an offline recipient. Sequence numbers
// are monotonic per recipient and define drain order.
type QueuedMessage struct {
	Sequence    int64     `db:"sequence" json:"sequence"`
	SenderID    int       `db:"sender_id" json:"sender_id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	RoomID      string    `db:"room_id" json:"room_id,omitempty"`
	Type        string    `db:"message_type" json:"type"`
	Payload     []byte    `db:"payload" json:"payload"`
	EnqueuedAt  time.Time `db:"enqueued_at" json:"enqueued_at"`
	Delivered   bool      `db:"delivered" json:"delivered"`
}
