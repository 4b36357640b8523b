package repository

import (
	"context"

	"github.com/reviewvibe/reviewvibe/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Search   *string
	Category *string
	Page     int
	PerPage  int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs retrieves multiple products in one round trip. Missing IDs are
	// simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// List returns products matching the filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// TopRated returns the highest-rated products that have at least minReviews.
	TopRated(ctx context.Context, limit, minReviews int) ([]domain.Product, error)
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// CreateWithStock inserts an order and its items and decrements product
	// stock in a single transaction. If any product has insufficient stock the
	// whole transaction is rolled back and an insufficient-stock error is
	// returned.
	CreateWithStock(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus changes the fulfillment status of an order.
	UpdateStatus(ctx context.Context, id string, status string) error

	// UpdatePaymentStatus changes the payment status of an order, optionally
	// moving the fulfillment status in the same write.
	UpdatePaymentStatus(ctx context.Context, id string, paymentStatus string, orderStatus *string) error

	// CancelWithRestock marks an order cancelled and returns its item
	// quantities to product stock in a single transaction. The payment status
	// is set to refunded when the order was paid.
	CancelWithRestock(ctx context.Context, order *domain.Order) error

	// Summary aggregates order counts and spend for a user.
	Summary(ctx context.Context, userID string) (*domain.OrderSummary, error)
}

// ReviewRepository defines the interface for review persistence operations.
// Writes that change a review also refresh the owning product's derived
// statistics and the author's points and review counters in the same
// transaction.
type ReviewRepository interface {
	// Create inserts a review, increments the author's counters, and
	// recomputes the product statistics atomically. A second review by the
	// same user for the same product yields a conflict error.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update rewrites the mutable fields of a review, applies the points
	// delta to the author, and recomputes the product statistics atomically.
	Update(ctx context.Context, review *domain.Review, pointsDelta int) error

	// Delete removes a review, deducts its earned points, and recomputes the
	// product statistics atomically.
	Delete(ctx context.Context, review *domain.Review) error

	// ListByProduct returns a product's reviews in the requested sort order
	// along with the total count.
	ListByProduct(ctx context.Context, productID, sort string, page, perPage int) ([]domain.Review, int, error)

	// ListByUser returns a user's reviews, newest first, with the total count.
	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Review, int, error)

	// IncrementHelpful adds one helpful vote and returns the new count.
	IncrementHelpful(ctx context.Context, id string) (int, error)
}

// UserRepository defines the interface for user read operations.
type UserRepository interface {
	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// Stats aggregates review statistics for a user.
	Stats(ctx context.Context, userID string) (*domain.ReviewStats, error)

	// Leaderboard returns the top users by points. Ties are broken by user ID
	// so the ordering is stable.
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

	// Rank returns the 1-based points rank of a user. Users with equal points
	// share a rank.
	Rank(ctx context.Context, userID string) (int, error)
}
