package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/response"
)

// LeaderboardHandler serves the public standings.
type LeaderboardHandler struct {
	leaderboard *services.LeaderboardService
}

// NewLeaderboardHandler constructs a LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Standings handles GET /api/leaderboard.
func (h *LeaderboardHandler) Standings(c *gin.Context) {
	entries, err := h.leaderboard.Standings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"standings": entries})
}
