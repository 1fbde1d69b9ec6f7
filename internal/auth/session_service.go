package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/cache"
	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/pkg/crypto"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/logger"
)

// DefaultSessionTTL defines how long a refresh session stays valid without use.
const DefaultSessionTTL = 7 * 24 * time.Hour

const refreshTokenBytes = 48

// SessionConfig bundles dependencies for the SessionService.
type SessionConfig struct {
	DB         *gorm.DB
	JWT        *JWTService
	Store      cache.Store
	SessionTTL time.Duration
	Clock      func() time.Time
}

// SessionService persists refresh sessions and issues token pairs. Tokens are
// never trusted alone for privileged access: the session row is the source of
// truth and can be revoked server side at any time.
type SessionService struct {
	db    *gorm.DB
	jwt   *JWTService
	cache *sessionStoreCache
	ttl   time.Duration
	now   func() time.Time
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// CreateSessionInput describes the principal a new session is minted for.
type CreateSessionInput struct {
	UserID    string
	Role      string
	IPAddress string
	UserAgent string
}

// NewSessionService constructs a SessionService.
func NewSessionService(cfg SessionConfig) (*SessionService, error) {
	if cfg.DB == nil {
		return nil, errors.New("auth: database handle is required")
	}
	if cfg.JWT == nil {
		return nil, errors.New("auth: jwt service is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionService{
		db:    cfg.DB,
		jwt:   cfg.JWT,
		cache: newSessionStoreCache(cfg.Store, ttl),
		ttl:   ttl,
		now:   now,
	}, nil
}

// CreateSession mints a session row plus a token pair for the given principal.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*TokenPair, error) {
	if input.UserID == "" {
		return nil, apperrors.ErrBadRequest
	}
	role := input.Role
	if role == "" {
		role = models.SessionRolePlayer
	}

	refreshToken, err := crypto.RandomToken(refreshTokenBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create session")
	}

	now := s.now()
	session := &models.Session{
		UserID:       input.UserID,
		Role:         role,
		RefreshToken: refreshToken,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		ExpiresAt:    now.Add(s.ttl),
		LastUsedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to create session")
	}

	if err := s.cache.Set(ctx, session); err != nil {
		logger.Warn("failed to cache session", zap.String("session_id", session.ID), zap.Error(err))
	}

	return s.issueTokens(session)
}

// RefreshSession rotates the refresh token and issues a fresh token pair.
// Rotation means any stolen refresh token stops working after its first use.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrUnauthorized
	}

	session, err := s.lookupSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.RevokedAt != nil || !session.ExpiresAt.After(now) {
		return nil, apperrors.ErrUnauthorized
	}

	rotated, err := crypto.RandomToken(refreshTokenBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to refresh session")
	}

	updates := map[string]interface{}{
		"refresh_token": rotated,
		"last_used_at":  now,
		"expires_at":    now.Add(s.ttl),
	}
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND refresh_token = ?", session.ID, refreshToken).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "failed to refresh session")
	}
	if result.RowsAffected == 0 {
		// Lost a race against a concurrent refresh or a revocation.
		return nil, apperrors.ErrUnauthorized
	}

	if err := s.cache.Delete(ctx, refreshToken); err != nil {
		logger.Warn("failed to invalidate cached session", zap.String("session_id", session.ID), zap.Error(err))
	}

	session.RefreshToken = rotated
	session.LastUsedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	if err := s.cache.Set(ctx, session); err != nil {
		logger.Warn("failed to cache session", zap.String("session_id", session.ID), zap.Error(err))
	}

	return s.issueTokens(session)
}

// RevokeSession invalidates the session behind a refresh token. Revoking an
// unknown token is not an error; logout must always succeed.
func (s *SessionService) RevokeSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	now := s.now()
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("refresh_token = ? AND revoked_at IS NULL", refreshToken).
		Update("revoked_at", now).Error
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke session")
	}

	if err := s.cache.Delete(ctx, refreshToken); err != nil {
		logger.Warn("failed to invalidate cached session", zap.Error(err))
	}
	return nil
}

// ValidateSession confirms a session row is still live. Privileged middleware
// calls this on every request so a revoked admin loses access immediately.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.Wrap(err, "failed to validate session")
	}

	if session.RevokedAt != nil || !session.ExpiresAt.After(s.now()) {
		return nil, apperrors.ErrUnauthorized
	}

	return &session, nil
}

// PruneExpired deletes sessions past their expiry. Called by the maintenance
// cron so the table does not grow without bound.
func (s *SessionService) PruneExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *SessionService) lookupSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if cached, err := s.cache.Get(ctx, refreshToken); err == nil {
		return cached, nil
	} else if !errors.Is(err, errSessionCacheMiss) {
		logger.Warn("session cache lookup failed", zap.Error(err))
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.Wrap(err, "failed to load session")
	}
	return &session, nil
}

func (s *SessionService) issueTokens(session *models.Session) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		SessionID: session.ID,
		Role:      session.Role,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to issue token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int64(s.jwt.ttl / time.Second),
	}, nil
}
