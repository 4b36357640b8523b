// Package scoring decides the trust score and reward points granted to a
// review. The policy is injectable so the authenticity model can evolve
// without touching the review flow.
package scoring

import (
	"context"

	"github.com/reviewvibe/reviewvibe/internal/domain"
)

// Input carries the review attributes a policy may inspect.
type Input struct {
	Rating    int
	Comment   string
	MediaType string
	Verified  bool
}

// Result is the outcome of scoring a review.
type Result struct {
	TrustScore float64
	Points     int
}

// Policy scores a review. Implementations must be safe for concurrent use.
type Policy interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// PointsFor returns the reward points for a review with the given media type.
// Reviews with richer media earn more.
func PointsFor(mediaType string) int {
	switch mediaType {
	case domain.MediaTypeVideo:
		return 60
	case domain.MediaTypeImage:
		return 30
	default:
		return 20
	}
}

// DefaultPolicy is a static heuristic: a configurable baseline trust score
// with bonuses for verified purchasers and media evidence, clamped to [0,100].
type DefaultPolicy struct {
	BaseScore     float64
	VerifiedBonus float64
	MediaBonus    float64
}

// NewDefaultPolicy returns the standard static policy.
func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{
		BaseScore:     70,
		VerifiedBonus: 15,
		MediaBonus:    10,
	}
}

// Score implements Policy.
func (p *DefaultPolicy) Score(_ context.Context, in Input) (Result, error) {
	score := p.BaseScore
	if in.Verified {
		score += p.VerifiedBonus
	}
	if in.MediaType == domain.MediaTypeImage || in.MediaType == domain.MediaTypeVideo {
		score += p.MediaBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Result{TrustScore: score, Points: PointsFor(in.MediaType)}, nil
}
