package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/response"
)

// SiteHandler serves public site information for the landing pages.
type SiteHandler struct {
	siteIP *services.SiteIPService
}

// NewSiteHandler constructs a SiteHandler.
func NewSiteHandler(siteIP *services.SiteIPService) *SiteHandler {
	return &SiteHandler{siteIP: siteIP}
}

// Info handles GET /api/site: the published competition address players
// point their VPN at.
func (h *SiteHandler) Info(c *gin.Context) {
	row, err := h.siteIP.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"ip_address": row.IPAddress,
		"updated_at": row.UpdatedAt,
	})
}
