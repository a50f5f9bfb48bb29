package ws

import "time"

// ConnInfo carries per-connection identity for event envelopes.
type ConnInfo struct {
	ConnID      string
	UserID      int
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
