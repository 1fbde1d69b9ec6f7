package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/response"
)

// AuthHandler manages the admin login flow and session maintenance.
type AuthHandler struct {
	admins   *services.AdminService
	sessions *iauth.SessionService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(admins *services.AdminService, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{admins: admins, sessions: sessions}
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AdminLogin handles POST /api/auth/admin/login.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin, err := h.admins.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.sessions.CreateSession(c.Request.Context(), iauth.CreateSessionInput{
		UserID:    admin.ID,
		Role:      models.SessionRoleAdmin,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": pair,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
		},
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.sessions.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.sessions.RevokeSession(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// Me handles GET /api/auth/me for admin tokens.
func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.admins.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":            admin.ID,
		"email":         admin.Email,
		"last_login_at": admin.LastLoginAt,
	})
}
