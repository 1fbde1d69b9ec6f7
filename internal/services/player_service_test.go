package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/database/testutil"
	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

func testIdentity() *auth.Identity {
	return &auth.Identity{
		Provider: "test",
		Subject:  uuid.NewString(),
		Email:    uuid.NewString() + "@example.com",
		Name:     "Test Player",
		Picture:  "https://example.com/avatar.png",
		Claims:   map[string]interface{}{"locale": "en"},
	}
}

func TestEnsureForIdentityCreatesAndUpdates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)
	ctx := context.Background()

	identity := testIdentity()

	user, hasPlayer, err := svc.EnsureForIdentity(ctx, identity)
	require.NoError(t, err)
	assert.False(t, hasPlayer)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, identity.Email, user.Email)

	// A later login with refreshed profile data updates in place.
	identity.Name = "Renamed Player"
	again, _, err := svc.EnsureForIdentity(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Renamed Player", again.DisplayName)

	_, err = svc.Create(ctx, user.ID, "ensure-"+uuid.NewString()[:8])
	require.NoError(t, err)

	_, hasPlayer, err = svc.EnsureForIdentity(ctx, identity)
	require.NoError(t, err)
	assert.True(t, hasPlayer)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "Display", DeriveUsername(&models.User{DisplayName: "Display", Email: "who@example.com"}))
	assert.Equal(t, "who", DeriveUsername(&models.User{Email: "who@example.com"}))
	assert.Equal(t, "", DeriveUsername(&models.User{}))
	assert.Equal(t, "", DeriveUsername(nil))
}

func TestCreatePlayerWritesProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)
	ctx := context.Background()

	user, _, err := svc.EnsureForIdentity(ctx, testIdentity())
	require.NoError(t, err)

	username := "profile-" + uuid.NewString()[:8]
	player, err := svc.Create(ctx, user.ID, "  "+username+"  ")
	require.NoError(t, err)
	assert.Equal(t, username, player.Username)
	assert.Equal(t, 0, player.Score)

	var profile models.Profile
	require.NoError(t, db.Where("id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, username, profile.Username)
	assert.Equal(t, user.Email, profile.Email)
}

func TestCreatePlayerRejectsDuplicateUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)
	ctx := context.Background()

	first, _, err := svc.EnsureForIdentity(ctx, testIdentity())
	require.NoError(t, err)
	second, _, err := svc.EnsureForIdentity(ctx, testIdentity())
	require.NoError(t, err)

	username := "taken-" + uuid.NewString()[:8]
	_, err = svc.Create(ctx, first.ID, username)
	require.NoError(t, err)

	_, err = svc.Create(ctx, second.ID, username)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreatePlayerIsIdempotentPerUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)
	ctx := context.Background()

	user, _, err := svc.EnsureForIdentity(ctx, testIdentity())
	require.NoError(t, err)

	username := "rerun-" + uuid.NewString()[:8]
	first, err := svc.Create(ctx, user.ID, username)
	require.NoError(t, err)

	// Back navigation re-running onboarding keeps the original row, even
	// with a different username in the form.
	again, err := svc.Create(ctx, user.ID, "other-"+uuid.NewString()[:8])
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, username, again.Username)
}

func TestCreatePlayerValidatesInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.NewString(), "   ")
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, 400, appErr.StatusCode)

	long := make([]byte, maxUsernameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Create(ctx, uuid.NewString(), string(long))
	require.Error(t, err)
}

func TestGetByUserIDNotFound(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewPlayerService(db)

	_, err := svc.GetByUserID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
