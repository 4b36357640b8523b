package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/repository"
)

// leaderboardTTL bounds how stale the cached leaderboard may be.
const leaderboardTTL = 30 * time.Second

// StatsService serves derived user statistics: points, achievements, and the
// leaderboard. The leaderboard is cached in Redis; a cache outage degrades to
// direct database reads.
type StatsService struct {
	users  repository.UserRepository
	cache  *redis.Client
	logger *slog.Logger
}

// NewStatsService creates a new stats service. cache may be nil, in which
// case every leaderboard read goes to the database.
func NewStatsService(users repository.UserRepository, cache *redis.Client, logger *slog.Logger) *StatsService {
	return &StatsService{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

// UserStats bundles a user's review statistics with derived badges and rank.
type UserStats struct {
	Stats        domain.ReviewStats   `json:"stats"`
	Achievements []domain.Achievement `json:"achievements"`
	Rank         int                  `json:"rank"`
}

// UserPoints is the points summary for a user.
type UserPoints struct {
	UserID      string `json:"user_id"`
	Points      int    `json:"points"`
	ReviewCount int    `json:"review_count"`
	Rank        int    `json:"rank"`
}

// GetUserStats aggregates a user's review statistics, achievements, and rank.
func (s *StatsService) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	stats, err := s.users.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user review stats: %w", err)
	}

	rank, err := s.users.Rank(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user rank: %w", err)
	}

	return &UserStats{
		Stats:        *stats,
		Achievements: domain.ComputeAchievements(*stats),
		Rank:         rank,
	}, nil
}

// GetUserPoints returns the user's points balance, review count, and rank.
func (s *StatsService) GetUserPoints(ctx context.Context, userID string) (*UserPoints, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	rank, err := s.users.Rank(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user rank: %w", err)
	}

	return &UserPoints{
		UserID:      user.ID,
		Points:      user.Points,
		ReviewCount: user.ReviewCount,
		Rank:        rank,
	}, nil
}

// Leaderboard returns the top users by points. currentUserID, when non-empty,
// flags the caller's own row. Results may be up to leaderboardTTL stale.
func (s *StatsService) Leaderboard(ctx context.Context, limit int, currentUserID string) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	entries, ok := s.cachedLeaderboard(ctx, limit)
	if !ok {
		var err error
		entries, err = s.users.Leaderboard(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("load leaderboard: %w", err)
		}
		s.storeLeaderboard(ctx, limit, entries)
	}

	// The caller flag is per-request and never cached.
	for i := range entries {
		entries[i].IsCurrentUser = entries[i].UserID == currentUserID
	}

	return entries, nil
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}

func (s *StatsService) cachedLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, err := s.cache.Get(ctx, leaderboardKey(limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "leaderboard cache read failed",
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache entry corrupt, ignoring",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return entries, true
}

func (s *StatsService) storeLeaderboard(ctx context.Context, limit int, entries []domain.LeaderboardEntry) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal leaderboard for cache failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.cache.Set(ctx, leaderboardKey(limit), payload, leaderboardTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache write failed",
			slog.String("error", err.Error()),
		)
	}
}
