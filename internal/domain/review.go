package domain

import "time"

// Review media type constants. An empty media type means a text-only review.
const (
	MediaTypeNone  = ""
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// MaxCommentLength is the maximum allowed review comment length.
const MaxCommentLength = 500

// Review represents a product review. PointsEarned stores the reward granted
// at creation time so a later delete or policy change deducts exactly what
// was granted.
type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    string    `json:"product_id"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title,omitempty"`
	Comment      string    `json:"comment"`
	MediaType    string    `json:"media_type,omitempty"`
	MediaURL     string    `json:"media_url,omitempty"`
	AITrustScore float64   `json:"ai_trust_score"`
	PointsEarned int       `json:"points_earned"`
	HelpfulVotes int       `json:"helpful_votes"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsValidMediaType checks if a media type string is valid.
func IsValidMediaType(mt string) bool {
	return mt == MediaTypeNone || mt == MediaTypeImage || mt == MediaTypeVideo
}

// IsValidRating checks that a rating is within the allowed range.
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// HasMedia reports whether the review carries an image or video attachment.
func (r *Review) HasMedia() bool {
	return r.MediaType == MediaTypeImage || r.MediaType == MediaTypeVideo
}

// ProductStats holds the derived review statistics for a product.
type ProductStats struct {
	OverallRating float64
	TotalReviews  int
	AITrustScore  float64
}

// ReviewSort options for listing product reviews.
const (
	ReviewSortNewest     = "newest"
	ReviewSortOldest     = "oldest"
	ReviewSortRatingHigh = "rating_high"
	ReviewSortRatingLow  = "rating_low"
	ReviewSortHelpful    = "helpful"
)

// IsValidReviewSort checks if a review sort option is valid.
func IsValidReviewSort(sort string) bool {
	switch sort {
	case ReviewSortNewest, ReviewSortOldest, ReviewSortRatingHigh, ReviewSortRatingLow, ReviewSortHelpful:
		return true
	}
	return false
}
