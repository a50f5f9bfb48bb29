package models

import "time"

// Room is a named group with bounded membership.
type Room struct {
	ID         string    `db:"id" json:"room_id"`
	Name       string    `db:"name" json:"name"`
	CreatorID  int       `db:"creator_id" json:"creator_id"`
	IsPrivate  bool      `db:"is_private" json:"is_private"`
	MaxMembers int       `db:"max_members" json:"max_members"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RoomInfo is the API-facing view of a room including its member count.
type RoomInfo struct {
	Room
	MemberCount int `json:"member_count"`
}
