package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/pkg/database"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, points, review_count, is_verified, avatar, created_at, updated_at
		FROM users
		WHERE id = $1`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Points,
		&u.ReviewCount,
		&u.IsVerified,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Stats aggregates review statistics for a user from their live reviews.
func (r *UserRepository) Stats(ctx context.Context, userID string) (*domain.ReviewStats, error) {
	query := `
		SELECT
			count(*),
			COALESCE(AVG(rating), 0),
			COALESCE(SUM(points_earned), 0),
			COALESCE(AVG(ai_trust_score), 0),
			count(*) FILTER (WHERE media_type <> ''),
			count(*) FILTER (WHERE media_type = 'video'),
			count(*) FILTER (WHERE media_type = 'image')
		FROM reviews
		WHERE user_id = $1`

	var stats domain.ReviewStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalReviews,
		&stats.AverageRating,
		&stats.TotalPointsEarned,
		&stats.AverageAIScore,
		&stats.ReviewsWithMedia,
		&stats.VideoReviews,
		&stats.ImageReviews,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user review stats: %w", err)
	}

	stats.AverageRating = domain.Round1(stats.AverageRating)
	stats.AverageAIScore = domain.Round1(stats.AverageAIScore)
	return &stats, nil
}

// Leaderboard returns the top users by points, ties broken by user ID so the
// ordering is stable across refreshes.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, name, avatar, points, review_count
		FROM users
		ORDER BY points DESC, id ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Avatar, &e.Points, &e.ReviewCount); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return entries, nil
}

// Rank returns the 1-based points rank of a user. Users with strictly more
// points rank ahead; equal points share a rank.
func (r *UserRepository) Rank(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT 1 + count(*)
		FROM users
		WHERE points > (SELECT points FROM users WHERE id = $1)`

	var rank int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("user", userID)
		}
		return 0, fmt.Errorf("scan user rank: %w", err)
	}
	return rank, nil
}
