package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge/internal/database/testutil"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

func TestSiteIPGetReturnsSeededRow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := NewSiteIPService(db)

	row, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, row.IPAddress)
}

func TestSiteIPUpdate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := NewSiteIPService(db)
	ctx := context.Background()

	row, err := svc.Update(ctx, " 10.10.14.2 ")
	require.NoError(t, err)
	assert.Equal(t, "10.10.14.2", row.IPAddress)

	// Writing the same value again is a no-op and must not touch the row.
	before := row.UpdatedAt
	again, err := svc.Update(ctx, "10.10.14.2")
	require.NoError(t, err)
	assert.Equal(t, before, again.UpdatedAt)

	// A different value does touch it.
	changed, err := svc.Update(ctx, "10.10.14.3")
	require.NoError(t, err)
	assert.Equal(t, "10.10.14.3", changed.IPAddress)
}

func TestSiteIPUpdateValidatesInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := NewSiteIPService(db)
	ctx := context.Background()

	_, err := svc.Update(ctx, "   ")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.FromError(err).StatusCode)

	// Anything non-blank is stored verbatim; operators publish hostnames
	// and addr:port pairs through the same field.
	row, err := svc.Update(ctx, "vpn.example.test:1337")
	require.NoError(t, err)
	assert.Equal(t, "vpn.example.test:1337", row.IPAddress)
}
