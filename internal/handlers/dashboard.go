package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/services"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/response"
)

// DashboardHandler serves the flag submission board.
type DashboardHandler struct {
	players *services.PlayerService
	flags   *services.FlagService
	siteIP  *services.SiteIPService
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(players *services.PlayerService, flags *services.FlagService, siteIP *services.SiteIPService) *DashboardHandler {
	return &DashboardHandler{players: players, flags: flags, siteIP: siteIP}
}

type submitFlagRequest struct {
	MachineID string `json:"machine_id" validate:"required"`
	FlagType  string `json:"flag_type" validate:"required"`
	Flag      string `json:"flag" validate:"required"`
}

// Board handles GET /api/dashboard: every machine with the caller's slot
// states merged in.
func (h *DashboardHandler) Board(c *gin.Context) {
	player, err := h.players.GetByUserID(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = errPlayerNotFound
		}
		response.Error(c, err)
		return
	}

	views, err := h.flags.Slots(c.Request.Context(), player.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The published address is display-only here; a missing row must not
	// take the board down.
	siteAddress := ""
	if site, err := h.siteIP.Get(c.Request.Context()); err == nil {
		siteAddress = site.IPAddress
	}

	response.Success(c, http.StatusOK, gin.H{
		"player":   player,
		"machines": views,
		"site_ip":  siteAddress,
	})
}

// Submit handles POST /api/dashboard/flags: one submission attempt for one
// slot. The grader's verdict comes back in the body; only hard failures
// (bad input, unknown machine, a duplicate in-flight attempt) are errors.
func (h *DashboardHandler) Submit(c *gin.Context) {
	var req submitFlagRequest
	if !bindAndValidate(c, &req) {
		return
	}

	player, err := h.players.GetByUserID(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = errPlayerNotFound
		}
		response.Error(c, err)
		return
	}

	result, err := h.flags.Submit(c.Request.Context(), player.ID, req.MachineID, req.FlagType, req.Flag)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
