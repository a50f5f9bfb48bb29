package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hub-service/internal/hub"
)

// StatsHandler exposes service metadata and occupancy snapshots.
type StatsHandler struct {
	hub *hub.Hub
}

// NewStatsHandler builds a StatsHandler.
func NewStatsHandler(h *hub.Hub) *StatsHandler {
	return &StatsHandler{hub: h}
}

// Index describes the service.
func (h *StatsHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Message Routing Hub",
		"version": "1.0.0",
		"features": []string{
			"Real-time messaging",
			"Room-based chat",
			"Offline message queue",
			"Presence tracking",
			"Message broadcasting",
		},
		"websocket_endpoint": "/ws/:user_id",
	})
}

// Health is the liveness probe.
func (h *StatsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Stats returns pool, queue and presence occupancy.
func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
