package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/logger"
)

const maxUsernameLength = 32

// ErrUsernameTaken is returned when a chosen player username already exists.
var ErrUsernameTaken = apperrors.New("USERNAME_TAKEN", "username already taken", 409)

// PlayerService manages user upserts on login and player onboarding.
type PlayerService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewPlayerService constructs a PlayerService.
func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{db: db, log: logger.WithModule("players")}
}

// EnsureForIdentity upserts the local user for an upstream identity and
// reports whether a player already exists for it. New logins without a player
// get sent through onboarding; returning players go straight to the dashboard.
func (s *PlayerService) EnsureForIdentity(ctx context.Context, identity *auth.Identity) (*models.User, bool, error) {
	if identity == nil || identity.Subject == "" {
		return nil, false, apperrors.ErrBadRequest
	}

	var rawClaims []byte
	if identity.Claims != nil {
		if encoded, err := json.Marshal(identity.Claims); err == nil {
			rawClaims = encoded
		}
	}

	user := models.User{
		Provider:    identity.Provider,
		Subject:     identity.Subject,
		Email:       identity.Email,
		DisplayName: identity.Name,
		AvatarURL:   identity.Picture,
		Claims:      rawClaims,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "subject"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "display_name", "avatar_url", "claims", "updated_at",
		}),
	}).Create(&user).Error
	if err != nil {
		return nil, false, apperrors.Wrap(err, "failed to upsert user")
	}

	// The upsert path does not reliably populate the id on conflict, so
	// re-read by the natural key.
	var stored models.User
	err = s.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", identity.Provider, identity.Subject).
		First(&stored).Error
	if err != nil {
		return nil, false, apperrors.Wrap(err, "failed to load user")
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.Player{}).
		Where("user_id = ?", stored.ID).
		Count(&count).Error
	if err != nil {
		return nil, false, apperrors.Wrap(err, "failed to check player")
	}

	return &stored, count > 0, nil
}

// DeriveUsername suggests a username for onboarding: the display name when
// present, otherwise the local part of the email address.
func DeriveUsername(user *models.User) string {
	if user == nil {
		return ""
	}
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(user.Email, "@")
	return strings.TrimSpace(local)
}

// Create registers a player for a user. The profile row is best effort:
// its failure is logged and the player creation still succeeds.
func (s *PlayerService) Create(ctx context.Context, userID, username string) (*models.Player, error) {
	username = strings.TrimSpace(username)
	if userID == "" {
		return nil, apperrors.ErrBadRequest
	}
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if len(username) > maxUsernameLength {
		return nil, apperrors.NewBadRequest("username is too long")
	}

	// A re-run of onboarding (back navigation, double submit) must not
	// duplicate the player; the existing row wins.
	if existing, err := s.GetByUserID(ctx, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	player := models.Player{
		UserID:   userID,
		Username: username,
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		if isUniqueConstraintError(err) {
			// The violated constraint is either the username or a player
			// inserted for this user by a concurrent callback run.
			if existing, lookupErr := s.GetByUserID(ctx, userID); lookupErr == nil {
				return existing, nil
			}
			return nil, ErrUsernameTaken
		}
		return nil, apperrors.Wrap(err, "failed to create player")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err == nil {
		profile := models.Profile{
			ID:       userID,
			Email:    user.Email,
			Username: username,
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&profile).Error; err != nil {
			s.log.Warn("profile creation failed", zap.String("user_id", userID), zap.Error(err))
		}
	} else {
		s.log.Warn("profile lookup skipped", zap.String("user_id", userID), zap.Error(err))
	}

	return &player, nil
}

// GetUser loads a user by id.
func (s *PlayerService) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	return &user, nil
}

// GetByUserID loads the player owned by a user.
func (s *PlayerService) GetByUserID(ctx context.Context, userID string) (*models.Player, error) {
	var player models.Player
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load player")
	}
	return &player, nil
}

// GetByID loads a player by its id.
func (s *PlayerService) GetByID(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load player")
	}
	return &player, nil
}
