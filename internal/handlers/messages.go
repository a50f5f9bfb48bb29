package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hub-service/internal/hub"
	"hub-service/internal/models"
	"hub-service/internal/rooms"
)

// MessageHandler exposes the routing entry point over HTTP.
type MessageHandler struct {
	hub *hub.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(h *hub.Hub) *MessageHandler {
	return &MessageHandler{hub: h}
}

type postMessageRequest struct {
	SenderID    int    `json:"sender_id" binding:"required"`
	RecipientID int    `json:"recipient_id,omitempty"`
	RoomID      string `json:"room_id,omitempty"`
	Broadcast   bool   `json:"broadcast,omitempty"`
	Exclude     []int  `json:"exclude,omitempty"`
	Type        string `json:"type,omitempty"`
	Content     string `json:"content" binding:"required"`
}

// PostMessage routes one message and returns the delivery report.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = "text"
	}

	// the hub validates that exactly one destination is set
	dest := models.Destination{
		UserID:    req.RecipientID,
		RoomID:    req.RoomID,
		Broadcast: req.Broadcast,
	}
	if len(req.Exclude) > 0 {
		dest.Exclude = make(map[int]bool, len(req.Exclude))
		for _, id := range req.Exclude {
			dest.Exclude[id] = true
		}
	}

	now := time.Now()
	payload, err := json.Marshal(gin.H{
		"sender_id": req.SenderID,
		"room_id":   req.RoomID,
		"type":      req.Type,
		"content":   req.Content,
		"timestamp": now,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not encode message"})
		return
	}

	report, err := h.hub.Route(c.Request.Context(), models.Message{
		SenderID:    req.SenderID,
		Destination: dest,
		Type:        req.Type,
		Payload:     payload,
		Timestamp:   now,
	})
	switch {
	case errors.Is(err, hub.ErrInvalidDestination):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination"})
	case errors.Is(err, rooms.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "routing failed"})
	default:
		c.JSON(http.StatusOK, report)
	}
}

// GetQueueSize returns a user's offline backlog length.
func (h *MessageHandler) GetQueueSize(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "queue_size": h.hub.QueueSize(userID)})
}
