package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/reviewvibe/reviewvibe/pkg/httpclient"
)

// RemotePolicy asks an external authenticity model for the trust score.
// Calls go through a circuit breaker; when the model is unreachable or the
// breaker is open, scoring degrades to the local fallback policy so review
// creation never blocks on the model being up. Points are always computed
// locally from the media type.
type RemotePolicy struct {
	client   *httpclient.CircuitBreakerClient
	url      string
	fallback Policy
	logger   *slog.Logger
}

// NewRemotePolicy creates a policy backed by the trust model at baseURL.
func NewRemotePolicy(client *httpclient.CircuitBreakerClient, baseURL string, fallback Policy, logger *slog.Logger) *RemotePolicy {
	return &RemotePolicy{
		client:   client,
		url:      baseURL + "/v1/score",
		fallback: fallback,
		logger:   logger,
	}
}

type scoreRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	MediaType string `json:"media_type,omitempty"`
	Verified  bool   `json:"verified"`
}

type scoreResponse struct {
	TrustScore float64 `json:"trust_score"`
}

// Score implements Policy.
func (p *RemotePolicy) Score(ctx context.Context, in Input) (Result, error) {
	result, err := p.remoteScore(ctx, in)
	if err == nil {
		return result, nil
	}

	p.logger.WarnContext(ctx, "trust model unavailable, using fallback policy",
		slog.String("error", err.Error()),
	)
	return p.fallback.Score(ctx, in)
}

func (p *RemotePolicy) remoteScore(ctx context.Context, in Input) (Result, error) {
	payload, err := json.Marshal(scoreRequest{
		Rating:    in.Rating,
		Comment:   in.Comment,
		MediaType: in.MediaType,
		Verified:  in.Verified,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal score request: %w", err)
	}

	resp, err := p.client.Post(ctx, p.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("call trust model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, httpclient.ParseResponseError(resp, "trust-model")
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode trust model response: %w", err)
	}

	score := body.TrustScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Result{TrustScore: score, Points: PointsFor(in.MediaType)}, nil
}
