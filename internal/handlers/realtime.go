package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/realtime"
)

// RealtimeHandler upgrades websocket connections for change notifications.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a RealtimeHandler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Serve handles GET /api/realtime?streams=players. Without an explicit list
// the connection starts on the players stream, which is what the leaderboard
// page needs.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	streams := []string{realtime.StreamPlayers}
	if raw := strings.TrimSpace(c.Query("streams")); raw != "" {
		streams = strings.Split(raw, ",")
	}

	h.hub.Serve(streams, c.Writer, c.Request)
}
