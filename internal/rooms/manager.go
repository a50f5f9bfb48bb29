package rooms

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hub-service/internal/models"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrCapacityInvalid = errors.New("room capacity must be at least 1")
)

// Store persists rooms and memberships. Mutations are confirmed: a failed
// write fails the operation before any in-memory state changes.
type Store interface {
	SaveRoom(ctx context.Context, room models.Room) error
	DeleteRoom(ctx context.Context, roomID string) error
	SaveMembership(ctx context.Context, roomID string, userID int) error
	DeleteMembership(ctx context.Context, roomID string, userID int) error
	LoadRooms(ctx context.Context) ([]models.Room, error)
	LoadMemberships(ctx context.Context) (map[string][]int, error)
}

type room struct {
	mu      sync.Mutex
	info    models.Room
	members map[int]struct{}
}

// Manager owns room membership. Each room carries its own mutex so join/leave
// on different rooms never block each other, and the check-and-insert on join
// is a single atomic step per room.
type Manager struct {
	store Store

	mu    sync.RWMutex
	rooms map[string]*room
}

// NewManager builds an empty manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, rooms: make(map[string]*room)}
}

// Load hydrates rooms and memberships from the store.
func (m *Manager) Load(ctx context.Context) error {
	roomList, err := m.store.LoadRooms(ctx)
	if err != nil {
		return err
	}
	memberships, err := m.store.LoadMemberships(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range roomList {
		members := make(map[int]struct{})
		for _, userID := range memberships[info.ID] {
			members[userID] = struct{}{}
		}
		m.rooms[info.ID] = &room{info: info, members: members}
	}
	log.Printf("rooms loaded count=%d", len(roomList))
	return nil
}

func (m *Manager) get(roomID string) (*room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// CreateRoom creates a room with a fresh id and auto-joins the creator.
func (m *Manager) CreateRoom(ctx context.Context, name string, creatorID int, isPrivate bool, maxMembers int) (models.Room, error) {
	if maxMembers < 1 {
		return models.Room{}, ErrCapacityInvalid
	}

	info := models.Room{
		ID:         uuid.NewString(),
		Name:       name,
		CreatorID:  creatorID,
		IsPrivate:  isPrivate,
		MaxMembers: maxMembers,
		CreatedAt:  time.Now(),
	}
	if err := m.store.SaveRoom(ctx, info); err != nil {
		return models.Room{}, err
	}
	if err := m.store.SaveMembership(ctx, info.ID, creatorID); err != nil {
		return models.Room{}, err
	}

	m.mu.Lock()
	m.rooms[info.ID] = &room{info: info, members: map[int]struct{}{creatorID: {}}}
	m.mu.Unlock()

	log.Printf("room created id=%s name=%q creator=%d max_members=%d", info.ID, name, creatorID, maxMembers)
	return info, nil
}

// DeleteRoom removes a room and its membership records.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	if _, ok := m.get(roomID); !ok {
		return ErrRoomNotFound
	}
	if err := m.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
	return nil
}

// Join adds a user to a room. Joining a room the user is already in is a
// no-op; two concurrent joins can never push membership above MaxMembers.
func (m *Manager) Join(ctx context.Context, roomID string, userID int) error {
	r, ok := m.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, member := r.members[userID]; member {
		return nil
	}
	if len(r.members) >= r.info.MaxMembers {
		return ErrRoomFull
	}
	if err := m.store.SaveMembership(ctx, roomID, userID); err != nil {
		return err
	}
	r.members[userID] = struct{}{}
	return nil
}

// Leave removes a user from a room. Leaving a room the user is not in, or a
// room that no longer exists, is a no-op: membership races are expected.
func (m *Manager) Leave(ctx context.Context, roomID string, userID int) error {
	r, ok := m.get(roomID)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, member := r.members[userID]; !member {
		return nil
	}
	if err := m.store.DeleteMembership(ctx, roomID, userID); err != nil {
		return err
	}
	delete(r.members, userID)
	return nil
}

// MembersOf returns a sorted snapshot of the room's members, taken atomically
// at call time so late joiners never see a message already in flight.
func (m *Manager) MembersOf(roomID string) ([]int, error) {
	r, ok := m.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	members := make([]int, 0, len(r.members))
	for userID := range r.members {
		members = append(members, userID)
	}
	r.mu.Unlock()

	sort.Ints(members)
	return members, nil
}

// RoomsOf returns the ids of rooms the user belongs to.
func (m *Manager) RoomsOf(userID int) []string {
	m.mu.RLock()
	all := make([]*room, 0, len(m.rooms))
	for _, r := range m.rooms {
		all = append(all, r)
	}
	m.mu.RUnlock()

	var ids []string
	for _, r := range all {
		r.mu.Lock()
		if _, member := r.members[userID]; member {
			ids = append(ids, r.info.ID)
		}
		r.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

// MemberCount returns the room's current member count.
func (m *Manager) MemberCount(roomID string) (int, error) {
	r, ok := m.get(roomID)
	if !ok {
		return 0, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), nil
}

// Info returns the API view of one room.
func (m *Manager) Info(roomID string) (models.RoomInfo, error) {
	r, ok := m.get(roomID)
	if !ok {
		return models.RoomInfo{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomInfo{Room: r.info, MemberCount: len(r.members)}, nil
}

// List returns every room with its member count.
func (m *Manager) List() []models.RoomInfo {
	m.mu.RLock()
	all := make([]*room, 0, len(m.rooms))
	for _, r := range m.rooms {
		all = append(all, r)
	}
	m.mu.RUnlock()

	infos := make([]models.RoomInfo, 0, len(all))
	for _, r := range all {
		r.mu.Lock()
		infos = append(infos, models.RoomInfo{Room: r.info, MemberCount: len(r.members)})
		r.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}
