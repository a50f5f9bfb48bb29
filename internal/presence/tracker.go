package presence

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"hub-service/internal/models"
)

var (
	// ErrUnknownUser is returned for queries or transitions on a user that has
	// never connected.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUserOffline is returned for explicit state changes while the user has
	// no live connections; only a first connection moves a user out of offline.
	ErrUserOffline = errors.New("user offline")
	// ErrInvalidState is returned when an explicit state change names anything
	// other than online or away.
	ErrInvalidState = errors.New("state must be online or away")
)

// Store persists presence records. Presence writes are fire-and-forget: a slow
// or failing store never fails the caller.
type Store interface {
	SavePresence(ctx context.Context, rec models.PresenceRecord) error
	LoadPresence(ctx context.Context) ([]models.PresenceRecord, error)
}

type record struct {
	mu  sync.Mutex
	rec models.PresenceRecord
}

// Tracker derives online/away/offline state and last-seen times. Records are
// created on first connection and retained forever for last-seen queries.
// The index lock only guards map access; each record carries its own mutex so
// updates for different users never block each other.
type Tracker struct {
	store Store

	mu      sync.RWMutex
	records map[int]*record
}

// NewTracker builds an empty tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, records: make(map[int]*record)}
}

// Load hydrates records from the store. Users persisted as online or away are
// forced offline: no connection survives a restart.
func (t *Tracker) Load(ctx context.Context) error {
	recs, err := t.store.LoadPresence(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range recs {
		if rec.State != models.StateOffline {
			rec.State = models.StateOffline
		}
		t.records[rec.UserID] = &record{rec: rec}
	}
	log.Printf("presence loaded records=%d", len(recs))
	return nil
}

func (t *Tracker) get(userID int) (*record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[userID]
	return r, ok
}

func (t *Tracker) getOrCreate(userID int) *record {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[userID]
	if !ok {
		r = &record{rec: models.PresenceRecord{UserID: userID, State: models.StateOffline}}
		t.records[userID] = r
	}
	return r
}

// SetOnline transitions a user to online on their first live connection,
// creating the record if this is the first time the user connects.
func (t *Tracker) SetOnline(userID int) {
	r := t.getOrCreate(userID)
	r.mu.Lock()
	r.rec.State = models.StateOnline
	r.rec.LastSeen = time.Now()
	snapshot := r.rec
	r.mu.Unlock()
	t.persist(snapshot)
}

// SetOffline transitions a user to offline when their pool empties, recording
// last-seen at the transition time. Unknown users are a no-op.
func (t *Tracker) SetOffline(userID int) {
	r, ok := t.get(userID)
	if !ok {
		return
	}
	r.mu.Lock()
	r.rec.State = models.StateOffline
	r.rec.LastSeen = time.Now()
	snapshot := r.rec
	r.mu.Unlock()
	t.persist(snapshot)
}

// SetState performs the caller-driven online/away toggle. It rejects unknown
// users, users with no live connection, and states outside {online, away}.
func (t *Tracker) SetState(userID int, state models.PresenceState) error {
	if state != models.StateOnline && state != models.StateAway {
		return ErrInvalidState
	}
	r, ok := t.get(userID)
	if !ok {
		return ErrUnknownUser
	}

	r.mu.Lock()
	if r.rec.State == models.StateOffline {
		r.mu.Unlock()
		return ErrUserOffline
	}
	r.rec.State = state
	if state == models.StateOnline {
		// last-seen tracks online activity; going away keeps the previous one
		r.rec.LastSeen = time.Now()
	}
	snapshot := r.rec
	r.mu.Unlock()
	t.persist(snapshot)
	return nil
}

// TouchActivity refreshes last-seen for an online user. Away users keep their
// last online activity time.
func (t *Tracker) TouchActivity(userID int) {
	r, ok := t.get(userID)
	if !ok {
		return
	}
	r.mu.Lock()
	if r.rec.State == models.StateOnline {
		r.rec.LastSeen = time.Now()
	}
	r.mu.Unlock()
}

// StateOf returns the user's current state.
func (t *Tracker) StateOf(userID int) (models.PresenceState, error) {
	r, ok := t.get(userID)
	if !ok {
		return "", ErrUnknownUser
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.State, nil
}

// LastSeen returns the user's last-seen time.
func (t *Tracker) LastSeen(userID int) (time.Time, error) {
	r, ok := t.get(userID)
	if !ok {
		return time.Time{}, ErrUnknownUser
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.LastSeen, nil
}

// StatesOf returns records for the requested users; users with no record are
// omitted.
func (t *Tracker) StatesOf(userIDs []int) map[int]models.PresenceRecord {
	out := make(map[int]models.PresenceRecord, len(userIDs))
	for _, id := range userIDs {
		r, ok := t.get(id)
		if !ok {
			continue
		}
		r.mu.Lock()
		out[id] = r.rec
		r.mu.Unlock()
	}
	return out
}

// Online lists users currently in the online state.
func (t *Tracker) Online() []int {
	t.mu.RLock()
	records := make([]*record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	t.mu.RUnlock()

	var online []int
	for _, r := range records {
		r.mu.Lock()
		if r.rec.State == models.StateOnline {
			online = append(online, r.rec.UserID)
		}
		r.mu.Unlock()
	}
	return online
}

func (t *Tracker) persist(rec models.PresenceRecord) {
	if err := t.store.SavePresence(context.Background(), rec); err != nil {
		log.Printf("presence persist failed user=%d: %v", rec.UserID, err)
	}
}
