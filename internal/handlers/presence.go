package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hub-service/internal/models"
	"hub-service/internal/presence"
)

// PresenceHandler exposes presence queries and the explicit online/away toggle.
type PresenceHandler struct {
	tracker *presence.Tracker
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// GetPresence returns one user's state and last-seen time.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	state, err := h.tracker.StateOf(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	lastSeen, _ := h.tracker.LastSeen(userID)

	c.JSON(http.StatusOK, models.PresenceRecord{UserID: userID, State: state, LastSeen: lastSeen})
}

// SetPresence performs the caller-driven online/away state change.
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		State models.PresenceState `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.tracker.SetState(userID, req.State)
	switch {
	case errors.Is(err, presence.ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
	case errors.Is(err, presence.ErrUserOffline), errors.Is(err, presence.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update state"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	}
}

// BatchPresence returns records for a list of users, for presence-list
// rendering. Users with no record are omitted from the response.
func (h *PresenceHandler) BatchPresence(c *gin.Context) {
	var req struct {
		UserIDs []int `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"presence": h.tracker.StatesOf(req.UserIDs)})
}
