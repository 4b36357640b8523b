package domain

import (
	"time"

	"github.com/reviewvibe/reviewvibe/pkg/slug"
)

// User represents a shopper account. Points and ReviewCount are derived
// counters kept in sync with the user's live reviews by atomic increments
// inside the review write transactions.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Points      int       `json:"points"`
	ReviewCount int       `json:"review_count"`
	IsVerified  bool      `json:"is_verified"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewStats holds aggregate statistics over a user's reviews.
type ReviewStats struct {
	TotalReviews      int     `json:"total_reviews"`
	AverageRating     float64 `json:"average_rating"`
	TotalPointsEarned int     `json:"total_points_earned"`
	AverageAIScore    float64 `json:"average_ai_score"`
	ReviewsWithMedia  int     `json:"reviews_with_media"`
	VideoReviews      int     `json:"video_reviews"`
	ImageReviews      int     `json:"image_reviews"`
}

// OrderSummary holds aggregate statistics over a user's orders. OrdersByStatus
// contains an entry for every valid status, zero-filled for unseen ones.
type OrderSummary struct {
	TotalOrders       int            `json:"total_orders"`
	TotalSpent        float64        `json:"total_spent"`
	AverageOrderValue float64        `json:"average_order_value"`
	OrdersByStatus    map[string]int `json:"orders_by_status"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar,omitempty"`
	Points        int    `json:"points"`
	ReviewCount   int    `json:"review_count"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// Achievement is a badge derived from a user's review statistics.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Earned      bool   `json:"earned"`
}

// Achievement thresholds.
const (
	achievementReviewerCount   = 10
	achievementExpertCount     = 50
	achievementVideoCount      = 5
	achievementTrustedAvgScore = 80.0
	achievementPointsTotal     = 1000
)

// ComputeAchievements derives the achievement list from review statistics.
// All achievements are always returned; Earned marks the unlocked ones.
func ComputeAchievements(stats ReviewStats) []Achievement {
	defs := []struct {
		name        string
		description string
		earned      bool
	}{
		{"First Review", "Write your first review", stats.TotalReviews >= 1},
		{"Reviewer", "Write 10 reviews", stats.TotalReviews >= achievementReviewerCount},
		{"Expert Reviewer", "Write 50 reviews", stats.TotalReviews >= achievementExpertCount},
		{"Video Creator", "Post 5 video reviews", stats.VideoReviews >= achievementVideoCount},
		{"Trusted Voice", "Maintain an average trust score of 80 or above", stats.TotalReviews > 0 && stats.AverageAIScore >= achievementTrustedAvgScore},
		{"Point Master", "Earn 1000 points", stats.TotalPointsEarned >= achievementPointsTotal},
	}

	achievements := make([]Achievement, len(defs))
	for i, d := range defs {
		achievements[i] = Achievement{
			ID:          slug.Generate(d.name),
			Name:        d.name,
			Description: d.description,
			Earned:      d.earned,
		}
	}
	return achievements
}
