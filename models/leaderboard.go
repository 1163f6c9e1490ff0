package models

import (
	"context"
	"time"

	"github.com/greenloop-dev/greenloop_backend/config"
)

type LeaderboardEntry struct {
	UserId    int       `json:"user_id"`
	Name      string    `json:"name"`
	Balance   int       `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

const leaderboardCacheKey = "Leaderboard"

// GetLeaderboard ranks users by cached balance, descending; ties broken by
// earliest account creation. Reads through a short-lived redis cache that is
// invalidated whenever the credit core posts (see InvalidateLeaderboard).
//
// The cache column is the read side; GetLeaderboard never replays the ledger.
// Drift repair is Reconcile's job.
func GetLeaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}

	var cached []*LeaderboardEntry
	if found, err := config.GetRedisObject(leaderboardCacheKey, &cached); err == nil && found {
		if len(cached) >= limit {
			return cached[:limit], nil
		}
	}

	db := config.GetDB()
	var entries []*LeaderboardEntry
	err := db.WithContext(ctx).Model(&User{}).
		Select("id AS user_id, name, points AS balance, created_at").
		Where("is_active = true").
		Order("points DESC, created_at ASC, id ASC").
		Limit(100).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(leaderboardCacheKey, entries, 30*time.Second); err != nil {
		config.LogError(config.GetLogger(), "models", "GetLeaderboard", "cache leaderboard", nil, err)
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func InvalidateLeaderboard() {
	if err := config.RemoveRedisKey(leaderboardCacheKey); err != nil {
		config.LogError(config.GetLogger(), "models", "InvalidateLeaderboard", "drop leaderboard cache", nil, err)
	}
}
