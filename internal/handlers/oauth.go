package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/logger"
	"github.com/flagforge/flagforge/pkg/metrics"
)

// Post-callback destinations. Tokens ride along as query parameters and the
// page script moves them into storage before rendering.
const (
	pathDashboard    = "/dashboard"
	pathCreatePlayer = "/create-player"
	pathAuthError    = "/auth/error"
)

// OAuthHandler drives the player login flow against the OIDC provider.
type OAuthHandler struct {
	authenticator *iauth.OIDCAuthenticator
	handshakes    *iauth.HandshakeStore
	players       *services.PlayerService
	sessions      *iauth.SessionService
	log           *zap.Logger
}

// NewOAuthHandler constructs an OAuthHandler.
func NewOAuthHandler(
	authenticator *iauth.OIDCAuthenticator,
	handshakes *iauth.HandshakeStore,
	players *services.PlayerService,
	sessions *iauth.SessionService,
) *OAuthHandler {
	return &OAuthHandler{
		authenticator: authenticator,
		handshakes:    handshakes,
		players:       players,
		sessions:      sessions,
		log:           logger.WithModule("oauth"),
	}
}

// Begin handles GET /api/auth/oauth/login: mint a handshake and redirect to
// the provider.
func (h *OAuthHandler) Begin(c *gin.Context) {
	if h.authenticator == nil {
		h.redirectError(c, "provider_unavailable")
		return
	}

	state, nonce, err := h.handshakes.Begin(c.Request.Context())
	if err != nil {
		h.log.Error("failed to begin oauth handshake", zap.Error(err))
		h.redirectError(c, "handshake_failed")
		return
	}

	c.Redirect(http.StatusFound, h.authenticator.AuthCodeURL(state, nonce))
}

// Callback handles GET /auth/callback: the provider redirects back here with
// a code and the state minted in Begin. Every failure lands on the error page
// rather than a bare JSON body, because the caller is a browser.
func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.redirectError(c, errParam)
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.redirectError(c, "missing_code")
		return
	}

	nonce, err := h.handshakes.Consume(ctx, state)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.redirectError(c, "invalid_state")
		return
	}

	identity, err := h.authenticator.Exchange(ctx, code, nonce)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.log.Warn("oauth exchange failed", zap.Error(err))
		h.redirectError(c, "exchange_failed")
		return
	}

	user, hasPlayer, err := h.players.EnsureForIdentity(ctx, identity)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.log.Error("failed to ensure user", zap.Error(err))
		h.redirectError(c, "account_failed")
		return
	}

	pair, err := h.sessions.CreateSession(ctx, iauth.CreateSessionInput{
		UserID:    user.ID,
		Role:      models.SessionRolePlayer,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		h.redirectError(c, "session_failed")
		return
	}

	metrics.AuthAttempts.WithLabelValues("oauth", "success").Inc()

	// First login goes through onboarding; returning players land on the
	// dashboard directly.
	destination := pathDashboard
	if !hasPlayer {
		destination = pathCreatePlayer
	}

	redirect, err := url.Parse(destination)
	if err != nil {
		h.redirectError(c, "redirect_failed")
		return
	}
	query := redirect.Query()
	query.Set("access_token", pair.AccessToken)
	query.Set("refresh_token", pair.RefreshToken)
	redirect.RawQuery = query.Encode()

	c.Redirect(http.StatusSeeOther, redirect.String())
}

func (h *OAuthHandler) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusSeeOther, pathAuthError+"?reason="+url.QueryEscape(reason))
}
