package models

import "time"

// PresenceState is a user's reachability state.
type PresenceState string

const (
	StateOnline  PresenceState = "online"
	StateAway    PresenceState = "away"
	StateOffline PresenceState = "offline"
)

// Valid reports whether s is one of the known states.
func (s PresenceState) Valid() bool {
	switch s {
	case StateOnline, StateAway, StateOffline:
		return true
	}
	return false
}

// PresenceRecord holds a user's state and last-seen time. Records are created
// on first connection and never deleted.
type PresenceRecord struct {
	UserID   int           `db:"user_id" json:"user_id"`
	State    PresenceState `db:"state" json:"state"`
	LastSeen time.Time     `db:"last_seen" json:"last_seen"`
}
