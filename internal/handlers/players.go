package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagforge/flagforge/internal/services"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/response"
)

// PlayersHandler manages player onboarding and lookup.
type PlayersHandler struct {
	players *services.PlayerService
}

// NewPlayersHandler constructs a PlayersHandler.
func NewPlayersHandler(players *services.PlayerService) *PlayersHandler {
	return &PlayersHandler{players: players}
}

// errPlayerNotFound signals that onboarding has not happened yet. Every
// endpoint that needs the caller's player row returns this code so the
// client can route to /create-player.
var errPlayerNotFound = apperrors.New("PLAYER_NOT_FOUND", "player not created yet", http.StatusNotFound)

type createPlayerRequest struct {
	Username string `json:"username" validate:"required,max=32"`
}

// Create handles POST /api/players: onboarding for a first-time login.
func (h *PlayersHandler) Create(c *gin.Context) {
	var req createPlayerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	player, err := h.players.Create(c.Request.Context(), currentUserID(c), req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, player)
}

// Me handles GET /api/players/me: the caller's own player record, 404 when
// onboarding has not happened yet so the client can route to it.
func (h *PlayersHandler) Me(c *gin.Context) {
	player, err := h.players.GetByUserID(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.Error(c, errPlayerNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, player)
}

// Suggestion handles GET /api/players/suggestion: the username the onboarding
// form pre-fills, derived from the identity's display name or email.
func (h *PlayersHandler) Suggestion(c *gin.Context) {
	user, err := h.players.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"username": services.DeriveUsername(user)})
}
