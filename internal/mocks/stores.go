package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hub-service/internal/models"
	"hub-service/internal/presence"
	"hub-service/internal/queue"
	"hub-service/internal/rooms"
)

type RoomStoreMock struct {
	mock.Mock
}

func (m *RoomStoreMock) SaveRoom(ctx context.Context, room models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomStoreMock) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomStoreMock) SaveMembership(ctx context.Context, roomID string, userID int) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomStoreMock) DeleteMembership(ctx context.Context, roomID string, userID int) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomStoreMock) LoadRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var list []models.Room
	if val := args.Get(0); val != nil {
		list = val.([]models.Room)
	}
	return list, args.Error(1)
}

func (m *RoomStoreMock) LoadMemberships(ctx context.Context) (map[string][]int, error) {
	args := m.Called(ctx)
	var byRoom map[string][]int
	if val := args.Get(0); val != nil {
		byRoom = val.(map[string][]int)
	}
	return byRoom, args.Error(1)
}

type PresenceStoreMock struct {
	mock.Mock
}

func (m *PresenceStoreMock) SavePresence(ctx context.Context, rec models.PresenceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *PresenceStoreMock) LoadPresence(ctx context.Context) ([]models.PresenceRecord, error) {
	args := m.Called(ctx)
	var recs []models.PresenceRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.PresenceRecord)
	}
	return recs, args.Error(1)
}

type QueueStoreMock struct {
	mock.Mock
}

func (m *QueueStoreMock) AppendMessage(ctx context.Context, msg models.QueuedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *QueueStoreMock) RemoveMessage(ctx context.Context, recipientID int, sequence int64) error {
	args := m.Called(ctx, recipientID, sequence)
	return args.Error(0)
}

func (m *QueueStoreMock) MarkDelivered(ctx context.Context, recipientID int, sequence int64) error {
	args := m.Called(ctx, recipientID, sequence)
	return args.Error(0)
}

func (m *QueueStoreMock) PurgeBefore(ctx context.Context, cutoff time.Time) error {
	args := m.Called(ctx, cutoff)
	return args.Error(0)
}

func (m *QueueStoreMock) LoadQueued(ctx context.Context) ([]models.QueuedMessage, error) {
	args := m.Called(ctx)
	var msgs []models.QueuedMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.QueuedMessage)
	}
	return msgs, args.Error(1)
}

var _ rooms.Store = (*RoomStoreMock)(nil)
var _ presence.Store = (*PresenceStoreMock)(nil)
var _ queue.Store = (*QueueStoreMock)(nil)
