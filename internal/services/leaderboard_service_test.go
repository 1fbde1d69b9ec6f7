package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/database/testutil"
	"github.com/flagforge/flagforge/internal/models"
)

func seedRankedPlayer(t *testing.T, db *gorm.DB, username string, score, flagCount int) *models.Player {
	t.Helper()

	user := models.User{Provider: "test", Subject: uuid.NewString()}
	require.NoError(t, db.Create(&user).Error)

	player := models.Player{UserID: user.ID, Username: username, Score: score}
	require.NoError(t, db.Create(&player).Error)

	machine := models.Machine{Name: "rank-box-" + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&machine).Error)

	types := []string{"user", "root"}
	for i := 0; i < flagCount; i++ {
		require.NoError(t, db.Create(&models.UserFlag{
			PlayerID:  player.ID,
			MachineID: machine.ID,
			FlagType:  types[i%len(types)],
			FlagValue: "FLAG{" + uuid.NewString()[:8] + "}",
		}).Error)
	}
	return &player
}

func TestStandingsOrderAndRanks(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewLeaderboardService(db)

	suffix := uuid.NewString()[:8]
	low := seedRankedPlayer(t, db, "rank-low-"+suffix, 10, 1)
	high := seedRankedPlayer(t, db, "rank-high-"+suffix, 100, 2)
	mid := seedRankedPlayer(t, db, "rank-mid-"+suffix, 50, 0)

	entries, err := svc.Standings(context.Background())
	require.NoError(t, err)

	positions := map[string]LeaderboardEntry{}
	for _, entry := range entries {
		positions[entry.PlayerID] = entry
	}

	require.Contains(t, positions, high.ID)
	require.Contains(t, positions, mid.ID)
	require.Contains(t, positions, low.ID)

	assert.Less(t, positions[high.ID].Rank, positions[mid.ID].Rank)
	assert.Less(t, positions[mid.ID].Rank, positions[low.ID].Rank)

	assert.Equal(t, int64(2), positions[high.ID].FlagsOwned)
	assert.Equal(t, int64(0), positions[mid.ID].FlagsOwned)
	assert.Equal(t, int64(1), positions[low.ID].FlagsOwned)

	// Ranks are dense and 1-based.
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestStandingsTieBrokenByUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewLeaderboardService(db)

	suffix := uuid.NewString()[:8]
	b := seedRankedPlayer(t, db, "tie-b-"+suffix, 77, 0)
	a := seedRankedPlayer(t, db, "tie-a-"+suffix, 77, 0)

	entries, err := svc.Standings(context.Background())
	require.NoError(t, err)

	var rankA, rankB int
	for _, entry := range entries {
		switch entry.PlayerID {
		case a.ID:
			rankA = entry.Rank
		case b.ID:
			rankB = entry.Rank
		}
	}
	assert.Equal(t, rankA+1, rankB)
}
