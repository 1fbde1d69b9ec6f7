package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/response"
)

// AdminHandler serves the admin panel API: currently the site address editor.
type AdminHandler struct {
	siteIP *services.SiteIPService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(siteIP *services.SiteIPService) *AdminHandler {
	return &AdminHandler{siteIP: siteIP}
}

type updateSiteIPRequest struct {
	IPAddress string `json:"ip_address" validate:"required"`
}

// GetSiteIP handles GET /api/admin/site-ip.
func (h *AdminHandler) GetSiteIP(c *gin.Context) {
	row, err := h.siteIP.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, row)
}

// UpdateSiteIP handles PUT /api/admin/site-ip.
func (h *AdminHandler) UpdateSiteIP(c *gin.Context) {
	var req updateSiteIPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	row, err := h.siteIP.Update(c.Request.Context(), req.IPAddress)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, row)
}
