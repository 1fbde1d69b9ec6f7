package auth

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/internal/cache"
	"github.com/flagforge/flagforge/pkg/crypto"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

const (
	handshakeKeyPrefix = "auth:oauth:state:"
	handshakeTokenLen  = 24

	// DefaultHandshakeTTL bounds how long an authorization round trip may take.
	DefaultHandshakeTTL = 10 * time.Minute
)

// HandshakeStore tracks in-flight OAuth handshakes. The state parameter is
// minted server side and consumed exactly once, which is what makes the
// callback CSRF safe.
type HandshakeStore struct {
	store cache.Store
	ttl   time.Duration
}

// NewHandshakeStore builds a HandshakeStore over the shared cache.
func NewHandshakeStore(store cache.Store, ttl time.Duration) *HandshakeStore {
	if ttl <= 0 {
		ttl = DefaultHandshakeTTL
	}
	return &HandshakeStore{store: store, ttl: ttl}
}

// Begin mints a state and nonce pair and records it for later consumption.
func (h *HandshakeStore) Begin(ctx context.Context) (state, nonce string, err error) {
	state, err = crypto.RandomToken(handshakeTokenLen)
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to begin oauth handshake")
	}
	nonce, err = crypto.RandomToken(handshakeTokenLen)
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to begin oauth handshake")
	}

	if err := h.store.Set(ctx, handshakeKeyPrefix+state, []byte(nonce), h.ttl); err != nil {
		return "", "", apperrors.Wrap(err, "failed to begin oauth handshake")
	}
	return state, nonce, nil
}

// Consume validates a returned state and removes it so it cannot be replayed.
// It returns the nonce the handshake was minted with.
func (h *HandshakeStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", apperrors.ErrUnauthorized
	}

	key := handshakeKeyPrefix + state
	payload, ok, err := h.store.Get(ctx, key)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to validate oauth state")
	}
	if !ok {
		return "", apperrors.ErrUnauthorized
	}

	if err := h.store.Delete(ctx, key); err != nil {
		return "", apperrors.Wrap(err, "failed to consume oauth state")
	}
	return string(payload), nil
}
