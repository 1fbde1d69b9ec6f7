package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/middleware"
)

// currentUserID returns the authenticated user's id from the request context.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// currentSessionID returns the session id bound to the access token.
func currentSessionID(c *gin.Context) string {
	return c.GetString(middleware.CtxSessionIDKey)
}

// currentRole returns the authenticated role, empty when unauthenticated.
func currentRole(c *gin.Context) string {
	return c.GetString(middleware.CtxRoleKey)
}
