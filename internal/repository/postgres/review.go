package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/pkg/database"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

const reviewColumns = `id, user_id, product_id, rating, title, comment, media_type, media_url,
	ai_trust_score, points_earned, helpful_votes, verified, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row pgx.Row, rv *domain.Review) error {
	return row.Scan(
		&rv.ID,
		&rv.UserID,
		&rv.ProductID,
		&rv.Rating,
		&rv.Title,
		&rv.Comment,
		&rv.MediaType,
		&rv.MediaURL,
		&rv.AITrustScore,
		&rv.PointsEarned,
		&rv.HelpfulVotes,
		&rv.Verified,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
}

// Create inserts a review, bumps the author's counters, and recomputes the
// product's derived statistics in one transaction. The unique constraint on
// (user_id, product_id) turns a duplicate review into a conflict.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO reviews (id, user_id, product_id, rating, title, comment, media_type, media_url,
			ai_trust_score, points_earned, helpful_votes, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, insertQuery,
		rv.ID,
		rv.UserID,
		rv.ProductID,
		rv.Rating,
		rv.Title,
		rv.Comment,
		rv.MediaType,
		rv.MediaURL,
		rv.AITrustScore,
		rv.PointsEarned,
		rv.HelpfulVotes,
		rv.Verified,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.Conflict("you have already reviewed this product")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if err := applyUserCounters(ctx, tx, rv.UserID, rv.PointsEarned, 1); err != nil {
		return err
	}

	if err := recomputeProductStats(ctx, tx, rv.ProductID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	var rv domain.Review
	if err := scanReview(r.pool.QueryRow(ctx, query, id), &rv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rv, nil
}

// Update rewrites the mutable fields of a review, applies the points delta to
// the author, and recomputes the product statistics in one transaction.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review, pointsDelta int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE reviews
		SET rating = $1, title = $2, comment = $3, media_type = $4, media_url = $5,
			ai_trust_score = $6, points_earned = $7, updated_at = $8
		WHERE id = $9`

	ct, err := tx.Exec(ctx, updateQuery,
		rv.Rating,
		rv.Title,
		rv.Comment,
		rv.MediaType,
		rv.MediaURL,
		rv.AITrustScore,
		rv.PointsEarned,
		rv.UpdatedAt,
		rv.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	if err := applyUserCounters(ctx, tx, rv.UserID, pointsDelta, 0); err != nil {
		return err
	}

	if err := recomputeProductStats(ctx, tx, rv.ProductID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes a review, deducts its earned points from the author, and
// recomputes the product statistics in one transaction.
func (r *ReviewRepository) Delete(ctx context.Context, rv *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, rv.ID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	if err := applyUserCounters(ctx, tx, rv.UserID, -rv.PointsEarned, -1); err != nil {
		return err
	}

	if err := recomputeProductStats(ctx, tx, rv.ProductID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListByProduct returns a product's reviews in the requested sort order with
// the total count.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID, sort string, page, perPage int) ([]domain.Review, int, error) {
	orderBy := "created_at DESC"
	switch sort {
	case domain.ReviewSortOldest:
		orderBy = "created_at ASC"
	case domain.ReviewSortRatingHigh:
		orderBy = "rating DESC, created_at DESC"
	case domain.ReviewSortRatingLow:
		orderBy = "rating ASC, created_at DESC"
	case domain.ReviewSortHelpful:
		orderBy = "helpful_votes DESC, created_at DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`, reviewColumns, orderBy)

	return r.listReviews(ctx, query, productID, page, perPage)
}

// ListByUser returns a user's reviews, newest first, with the total count.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Review, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, reviewColumns)

	return r.listReviews(ctx, query, userID, page, perPage)
}

func (r *ReviewRepository) listReviews(ctx context.Context, query, keyID string, page, perPage int) ([]domain.Review, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	rows, err := r.pool.Query(ctx, query, keyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&rv.ProductID,
			&rv.Rating,
			&rv.Title,
			&rv.Comment,
			&rv.MediaType,
			&rv.MediaURL,
			&rv.AITrustScore,
			&rv.PointsEarned,
			&rv.HelpfulVotes,
			&rv.Verified,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// IncrementHelpful adds one helpful vote and returns the new count.
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE reviews
		SET helpful_votes = helpful_votes + 1, updated_at = $1
		WHERE id = $2
		RETURNING helpful_votes`

	var votes int
	err := r.pool.QueryRow(ctx, query, time.Now().UTC(), id).Scan(&votes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("review", id)
		}
		return 0, fmt.Errorf("increment helpful votes: %w", err)
	}
	return votes, nil
}

// applyUserCounters atomically shifts a user's points and review count. The
// relative SET avoids a read-modify-write race between concurrent reviews.
func applyUserCounters(ctx context.Context, tx pgx.Tx, userID string, pointsDelta, countDelta int) error {
	query := `
		UPDATE users
		SET points = GREATEST(points + $1, 0), review_count = GREATEST(review_count + $2, 0), updated_at = $3
		WHERE id = $4`

	ct, err := tx.Exec(ctx, query, pointsDelta, countDelta, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update user counters: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}
	return nil
}

// recomputeProductStats rescans the product's live reviews and rewrites the
// derived statistics. The product row is locked first so concurrent review
// writes serialize and the last recompute always reflects all committed rows.
func recomputeProductStats(ctx context.Context, tx pgx.Tx, productID string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("product", productID)
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	var (
		total    int
		avgRate  float64
		avgTrust float64
	)
	err = tx.QueryRow(ctx, `
		SELECT count(*), COALESCE(AVG(rating), 0), COALESCE(AVG(ai_trust_score), 0)
		FROM reviews
		WHERE product_id = $1`, productID,
	).Scan(&total, &avgRate, &avgTrust)
	if err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET overall_rating = $1, total_reviews = $2, ai_trust_score = $3, updated_at = $4
		WHERE id = $5`,
		domain.Round1(avgRate), total, domain.Round1(avgTrust), time.Now().UTC(), productID,
	)
	if err != nil {
		return fmt.Errorf("update product stats: %w", err)
	}
	return nil
}
