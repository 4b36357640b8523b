package domain

import "time"

// Product represents a catalog product. OverallRating, TotalReviews, and
// AITrustScore are derived statistics maintained exclusively by the review
// aggregate recompute; nothing else writes them.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"image_url,omitempty"`
	Stock         int       `json:"stock"`
	OverallRating float64   `json:"overall_rating"`
	TotalReviews  int       `json:"total_reviews"`
	AITrustScore  float64   `json:"ai_trust_score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InStock reports whether the requested quantity can currently be fulfilled.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity
}
