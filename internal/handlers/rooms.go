package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hub-service/internal/rooms"
	"hub-service/internal/telemetry"
)

// RoomHandler manages room endpoints.
type RoomHandler struct {
	rooms           *rooms.Manager
	audit           *telemetry.AuditEmitter
	defaultCapacity int
}

// NewRoomHandler builds a RoomHandler. defaultCapacity applies when a create
// request names no member limit.
func NewRoomHandler(manager *rooms.Manager, audit *telemetry.AuditEmitter, defaultCapacity int) *RoomHandler {
	return &RoomHandler{rooms: manager, audit: audit, defaultCapacity: defaultCapacity}
}

// CreateRoom creates a room; the creator is auto-joined.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		CreatorID  int    `json:"creator_id" binding:"required"`
		IsPrivate  bool   `json:"is_private"`
		MaxMembers int    `json:"max_members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxMembers == 0 {
		req.MaxMembers = h.defaultCapacity
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.Name, req.CreatorID, req.IsPrivate, req.MaxMembers)
	if err != nil {
		if errors.Is(err, rooms.ErrCapacityInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("room created id=%s creator=%d", room.ID, req.CreatorID),
		requestIDFromContext(c), nil)
	c.JSON(http.StatusCreated, room)
}

// ListRooms returns every room with member counts.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	list := h.rooms.List()
	c.JSON(http.StatusOK, gin.H{"rooms": list, "count": len(list)})
}

// GetRoom returns one room.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	info, err := h.rooms.Info(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteRoom removes a room and its memberships.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		return
	}
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("room deleted id=%s", c.Param("room_id")),
		requestIDFromContext(c), nil)
	c.Status(http.StatusNoContent)
}

// JoinRoom adds a user to a room.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := userIDFromBody(c)
	if !ok {
		return
	}

	err := h.rooms.Join(c.Request.Context(), c.Param("room_id"), userID)
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, rooms.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": "room full"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "joined"})
	}
}

// LeaveRoom removes a user from a room; leaving twice is fine.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := userIDFromBody(c)
	if !ok {
		return
	}

	if err := h.rooms.Leave(c.Request.Context(), c.Param("room_id"), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// GetMembers returns the room's member snapshot.
func (h *RoomHandler) GetMembers(c *gin.Context) {
	members, err := h.rooms.MembersOf(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

// GetUserRooms returns the rooms a user belongs to.
func (h *RoomHandler) GetUserRooms(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.RoomsOf(userID)})
}

func userIDFromBody(c *gin.Context) (int, bool) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return req.UserID, true
}
