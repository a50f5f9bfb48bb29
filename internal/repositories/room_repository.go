package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hub-service/internal/models"
	"hub-service/internal/rooms"
)

// RoomRepo is the sqlx-backed room store.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// SaveRoom persists a room record.
func (r *RoomRepo) SaveRoom(ctx context.Context, room models.Room) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, creator_id, is_private, max_members, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, is_private = EXCLUDED.is_private, max_members = EXCLUDED.max_members`,
		room.ID, room.Name, room.CreatorID, room.IsPrivate, room.MaxMembers, room.CreatedAt)
	return err
}

// DeleteRoom removes a room; membership rows cascade.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	return err
}

// SaveMembership records a (room, user) membership pair.
func (r *RoomRepo) SaveMembership(ctx context.Context, roomID string, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roomID, userID)
	return err
}

// DeleteMembership removes a membership pair.
func (r *RoomRepo) DeleteMembership(ctx context.Context, roomID string, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}

// LoadRooms returns every persisted room.
func (r *RoomRepo) LoadRooms(ctx context.Context) ([]models.Room, error) {
	var list []models.Room
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, name, creator_id, is_private, max_members, created_at FROM rooms ORDER BY created_at ASC`)
	return list, err
}

// LoadMemberships returns all membership pairs grouped by room.
func (r *RoomRepo) LoadMemberships(ctx context.Context) (map[string][]int, error) {
	var pairs []struct {
		RoomID string `db:"room_id"`
		UserID int    `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &pairs,
		`SELECT room_id, user_id FROM room_members ORDER BY joined_at ASC`); err != nil {
		return nil, err
	}

	byRoom := make(map[string][]int)
	for _, pair := range pairs {
		byRoom[pair.RoomID] = append(byRoom[pair.RoomID], pair.UserID)
	}
	return byRoom, nil
}

var _ rooms.Store = (*RoomRepo)(nil)
