package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/flagforge/flagforge/internal/cache"
	"github.com/flagforge/flagforge/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:refresh:"

var errSessionCacheMiss = errors.New("session cache miss")

// sessionStoreCache keeps a copy of active sessions keyed by refresh token so
// refresh requests avoid a database round trip on the hot path.
type sessionStoreCache struct {
	store cache.Store
	ttl   time.Duration
}

func newSessionStoreCache(store cache.Store, ttl time.Duration) *sessionStoreCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store, ttl: ttl}
}

// cachedSession mirrors models.Session but carries the refresh token, which
// the model deliberately hides from JSON output.
type cachedSession struct {
	models.Session
	RefreshToken string `json:"refresh_token"`
}

func (c *sessionStoreCache) key(refreshToken string) string {
	return sessionCacheKeyPrefix + refreshToken
}

func (c *sessionStoreCache) Set(ctx context.Context, session *models.Session) error {
	if c == nil || session == nil {
		return nil
	}
	payload, err := json.Marshal(cachedSession{Session: *session, RefreshToken: session.RefreshToken})
	if err != nil {
		return err
	}
	ttl := c.ttl
	if remaining := time.Until(session.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	return c.store.Set(ctx, c.key(session.RefreshToken), payload, ttl)
}

func (c *sessionStoreCache) Get(ctx context.Context, refreshToken string) (*models.Session, error) {
	if c == nil {
		return nil, errSessionCacheMiss
	}
	payload, ok, err := c.store.Get(ctx, c.key(refreshToken))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errSessionCacheMiss
	}
	var cached cachedSession
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, err
	}
	session := cached.Session
	session.RefreshToken = cached.RefreshToken
	return &session, nil
}

func (c *sessionStoreCache) Delete(ctx context.Context, refreshToken string) error {
	if c == nil {
		return nil
	}
	return c.store.Delete(ctx, c.key(refreshToken))
}
