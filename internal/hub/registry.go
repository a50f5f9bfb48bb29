package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPoolExhausted is returned when a user already holds the maximum number of
// live connections. The caller must treat it as terminal for that attempt.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Connection is one live link owned by the registry. Pool and room code hold
// references, never ownership.
type Connection struct {
	ID           string
	UserID       int
	Transport    Transport
	CreatedAt    time.Time
	LastActivity time.Time
}

// Registry maps connection ids to transport handles and tracks the per-user
// connection pool. The per-user slices keep registration order so fan-out and
// snapshots are deterministic.
type Registry struct {
	maxPerUser int

	mu    sync.RWMutex
	conns map[string]*Connection
	users map[int][]string
}

// NewRegistry creates an empty registry enforcing maxPerUser live connections
// per user.
func NewRegistry(maxPerUser int) *Registry {
	return &Registry{
		maxPerUser: maxPerUser,
		conns:      make(map[string]*Connection),
		users:      make(map[int][]string),
	}
}

// Add registers a new connection for userID. It reports whether this is the
// user's first live connection, and fails with ErrPoolExhausted at the cap.
// Existing connections are never evicted to make room.
func (r *Registry) Add(userID int, transport Transport) (*Connection, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users[userID]) >= r.maxPerUser {
		return nil, false, ErrPoolExhausted
	}

	now := time.Now()
	conn := &Connection{
		ID:           uuid.NewString(),
		UserID:       userID,
		Transport:    transport,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.conns[conn.ID] = conn
	r.users[userID] = append(r.users[userID], conn.ID)

	return conn, len(r.users[userID]) == 1, nil
}

// Remove unregisters a connection. Unknown ids are a no-op because disconnects
// race with cleanup. It reports the owning user and whether the user's pool
// became empty.
func (r *Registry) Remove(connID string) (int, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return 0, false, false
	}
	delete(r.conns, connID)

	ids := r.users[conn.UserID]
	for i, id := range ids {
		if id == connID {
			r.users[conn.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.users[conn.UserID]) == 0 {
		delete(r.users, conn.UserID)
		return conn.UserID, true, true
	}
	return conn.UserID, false, true
}

// Touch updates a connection's last-activity time and reports the owning user.
func (r *Registry) Touch(connID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return 0, false
	}
	conn.LastActivity = time.Now()
	return conn.UserID, true
}

// ConnectionsOf returns a point-in-time snapshot of the user's connections in
// registration order. The snapshot is taken under the lock so fan-out happens
// without holding it.
func (r *Registry) ConnectionsOf(userID int) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.users[userID]
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// All returns a snapshot of every connection whose owner is not excluded.
func (r *Registry) All(exclude map[int]bool) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		if exclude[conn.UserID] {
			continue
		}
		conns = append(conns, conn)
	}
	return conns
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// CountFor returns the user's current pool size.
func (r *Registry) CountFor(userID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// Stats summarises the registry for observability endpoints.
type RegistryStats struct {
	TotalConnections int         `json:"total_connections"`
	OnlineUsers      int         `json:"online_users"`
	ConnectionsByUser map[int]int `json:"connections_by_user"`
	MaxPerUser       int         `json:"max_per_user"`
}

// Stats returns a consistent snapshot of pool occupancy.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := make(map[int]int, len(r.users))
	for userID, ids := range r.users {
		byUser[userID] = len(ids)
	}
	return RegistryStats{
		TotalConnections:  len(r.conns),
		OnlineUsers:       len(r.users),
		ConnectionsByUser: byUser,
		MaxPerUser:        r.maxPerUser,
	}
}
