package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge/internal/database/testutil"
	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

func TestAdminAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewAdminService(db)
	ctx := context.Background()

	email := "ops-" + uuid.NewString()[:8] + "@example.com"
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, email, "correct horse"))

	admin, err := svc.Authenticate(ctx, email, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, email, admin.Email)
	assert.NotNil(t, admin.LastLoginAt)

	// Email comparison is case-insensitive.
	_, err = svc.Authenticate(ctx, strings.ToUpper(email), "correct horse")
	assert.NoError(t, err)
}

func TestAdminAuthenticateRejectsBadCredentials(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewAdminService(db)
	ctx := context.Background()

	email := "ops-" + uuid.NewString()[:8] + "@example.com"
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, email, "correct horse"))

	_, err := svc.Authenticate(ctx, email, "wrong password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody-"+uuid.NewString()[:8]+"@example.com", "anything")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewAdminService(db)
	ctx := context.Background()

	email := "boot-" + uuid.NewString()[:8] + "@example.com"
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, email, "first password"))
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, email, "second password"))

	var count int64
	require.NoError(t, db.Model(&models.Admin{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The original password still works.
	_, err := svc.Authenticate(ctx, email, "first password")
	assert.NoError(t, err)
}
