package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/event"
	"github.com/reviewvibe/reviewvibe/internal/repository"
	"github.com/reviewvibe/reviewvibe/internal/scoring"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	users    repository.UserRepository
	policy   scoring.Policy
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	policy scoring.Policy,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		users:    users,
		policy:   policy,
		producer: producer,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	UserID    string
	ProductID string
	Rating    int
	Title     string
	Comment   string
	MediaType string
	MediaURL  string
}

// UpdateReviewInput holds the mutable fields of a review. Nil fields keep
// their stored values, so callers can edit a single field.
type UpdateReviewInput struct {
	Rating    *int
	Title     *string
	Comment   *string
	MediaType *string
	MediaURL  *string
}

func validateReviewFields(rating int, comment, mediaType, mediaURL string) error {
	if !domain.IsValidRating(rating) {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if strings.TrimSpace(comment) == "" {
		return apperrors.InvalidInput("comment is required")
	}
	if len(comment) > domain.MaxCommentLength {
		return apperrors.InvalidInput(fmt.Sprintf("comment must be at most %d characters", domain.MaxCommentLength))
	}
	if !domain.IsValidMediaType(mediaType) {
		return apperrors.InvalidInput(`media_type must be "image", "video", or empty`)
	}
	if mediaType != domain.MediaTypeNone && mediaURL == "" {
		return apperrors.InvalidInput("media_url is required when media_type is set")
	}
	return nil
}

// CreateReview scores and persists a new review. The author's points and the
// product's derived statistics move in the same transaction as the insert.
func (s *ReviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if err := validateReviewFields(input.Rating, input.Comment, input.MediaType, input.MediaURL); err != nil {
		return nil, err
	}

	// Resolve the product and author up front so a bad reference is a clean
	// 404 instead of a foreign key failure mid transaction.
	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("load reviewed product: %w", err)
	}
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("load review author: %w", err)
	}

	scored, err := s.policy.Score(ctx, scoring.Input{
		Rating:    input.Rating,
		Comment:   input.Comment,
		MediaType: input.MediaType,
		Verified:  user.IsVerified,
	})
	if err != nil {
		return nil, fmt.Errorf("score review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:           uuid.New().String(),
		UserID:       input.UserID,
		ProductID:    input.ProductID,
		Rating:       input.Rating,
		Title:        input.Title,
		Comment:      input.Comment,
		MediaType:    input.MediaType,
		MediaURL:     input.MediaURL,
		AITrustScore: scored.TrustScore,
		PointsEarned: scored.Points,
		Verified:     user.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
		slog.Int("points_earned", review.PointsEarned),
	)

	return review, nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// UpdateReview rewrites a review's mutable fields, re-scores it, and settles
// the points difference with the author. Fields absent from the input are
// carried over from the stored review before re-scoring.
func (s *ReviewService) UpdateReview(ctx context.Context, id, userID string, input UpdateReviewInput) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}
	if review.UserID != userID {
		return nil, apperrors.Forbidden("you can only edit your own reviews")
	}

	rating := review.Rating
	if input.Rating != nil {
		rating = *input.Rating
	}
	title := review.Title
	if input.Title != nil {
		title = *input.Title
	}
	comment := review.Comment
	if input.Comment != nil {
		comment = *input.Comment
	}
	mediaType := review.MediaType
	if input.MediaType != nil {
		mediaType = *input.MediaType
	}
	mediaURL := review.MediaURL
	if input.MediaURL != nil {
		mediaURL = *input.MediaURL
	}

	if err := validateReviewFields(rating, comment, mediaType, mediaURL); err != nil {
		return nil, err
	}

	scored, err := s.policy.Score(ctx, scoring.Input{
		Rating:    rating,
		Comment:   comment,
		MediaType: mediaType,
		Verified:  review.Verified,
	})
	if err != nil {
		return nil, fmt.Errorf("score review: %w", err)
	}

	pointsDelta := scored.Points - review.PointsEarned

	review.Rating = rating
	review.Title = title
	review.Comment = comment
	review.MediaType = mediaType
	review.MediaURL = mediaURL
	review.AITrustScore = scored.TrustScore
	review.PointsEarned = scored.Points
	review.UpdatedAt = time.Now().UTC()

	if err := s.reviews.Update(ctx, review, pointsDelta); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.producer.PublishReviewUpdated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.Int("points_delta", pointsDelta),
	)

	return review, nil
}

// DeleteReview removes a review and claws back its earned points.
func (s *ReviewService) DeleteReview(ctx context.Context, id, userID string) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}
	if review.UserID != userID {
		return apperrors.Forbidden("you can only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, review); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("points_reclaimed", review.PointsEarned),
	)

	return nil
}

// MarkHelpful records a helpful vote and returns the new count.
func (s *ReviewService) MarkHelpful(ctx context.Context, id string) (int, error) {
	votes, err := s.reviews.IncrementHelpful(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("mark review helpful: %w", err)
	}
	return votes, nil
}

// ListProductReviews returns a product's reviews in the requested sort order.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID, sort string, page, perPage int) ([]domain.Review, int, error) {
	if sort == "" {
		sort = domain.ReviewSortNewest
	}
	if !domain.IsValidReviewSort(sort) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid sort %q", sort))
	}

	page, perPage = normalizePage(page, perPage)

	reviews, total, err := s.reviews.ListByProduct(ctx, productID, sort, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list product reviews: %w", err)
	}
	return reviews, total, nil
}

// ListUserReviews returns a user's reviews, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string, page, perPage int) ([]domain.Review, int, error) {
	page, perPage = normalizePage(page, perPage)

	reviews, total, err := s.reviews.ListByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list user reviews: %w", err)
	}
	return reviews, total, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
