package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/response"
)

// Context keys set by the auth middleware.
const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	CtxRoleKey      = "role"
)

// Auth enforces JWT bearer authentication.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxRoleKey, claims.Role)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		c.Next()
	}
}

// RequireAdmin gates privileged routes. The role claim alone is not trusted:
// the backing session row is checked on every request so revocation takes
// effect immediately.
func RequireAdmin(sessions *iauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role != models.SessionRoleAdmin {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		sessionID := c.GetString(CtxSessionIDKey)
		session, err := sessions.ValidateSession(c.Request.Context(), sessionID)
		if err != nil || session.Role != models.SessionRoleAdmin {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
