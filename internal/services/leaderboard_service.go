package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

// LeaderboardEntry is one ranked scoreboard row.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	Username   string `json:"username"`
	Score      int    `json:"score"`
	FlagsOwned int64  `json:"flags_owned"`
}

// LeaderboardService produces the ranked standings.
type LeaderboardService struct {
	db *gorm.DB
}

// NewLeaderboardService constructs a LeaderboardService.
func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// Standings returns every player ordered by score descending. Ties are broken
// by username so the ordering is stable between refreshes.
func (s *LeaderboardService) Standings(ctx context.Context) ([]LeaderboardEntry, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Order("score DESC").
		Order("username ASC").
		Find(&players).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load standings")
	}

	counts, err := s.flagCounts(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(players))
	for i, player := range players {
		entries[i] = LeaderboardEntry{
			Rank:       i + 1,
			PlayerID:   player.ID,
			Username:   player.Username,
			Score:      player.Score,
			FlagsOwned: counts[player.ID],
		}
	}
	return entries, nil
}

func (s *LeaderboardService) flagCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		PlayerID string
		Total    int64
	}

	var rows []row
	err := s.db.WithContext(ctx).Model(&models.UserFlag{}).
		Select("player_id", "COUNT(*) AS total").
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count flags")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PlayerID] = r.Total
	}
	return counts, nil
}
