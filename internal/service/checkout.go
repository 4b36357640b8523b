package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/event"
	"github.com/reviewvibe/reviewvibe/internal/repository"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

// CheckoutService implements the business logic for placing orders.
type CheckoutService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(products repository.ProductRepository, orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		products: products,
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// CheckoutItemInput is one requested line of a checkout.
type CheckoutItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CheckoutInput holds the parameters for placing an order. Prices are never
// accepted from the client; they are snapshotted from the catalog.
type CheckoutInput struct {
	UserID          string
	Items           []CheckoutItemInput
	ShippingAddress *domain.Address
	PaymentMethod   string
}

// Checkout validates the cart against the catalog, then places the order.
// The stock check here is advisory: the authoritative guard is the
// conditional decrement inside the order transaction, so a race between two
// checkouts still cannot oversell.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	// Merge duplicate product lines so the stock guard sees the real total.
	quantities := make(map[string]int, len(input.Items))
	productIDs := make([]string, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, apperrors.InvalidInput("quantity must be at least 1")
		}
		if _, seen := quantities[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load checkout products: %w", err)
	}

	now := time.Now().UTC()
	orderID := uuid.New().String()

	var total float64
	items := make([]domain.OrderItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok {
			return nil, apperrors.NotFound("product", productID)
		}

		quantity := quantities[productID]
		if !product.InStock(quantity) {
			return nil, apperrors.InsufficientStock(product.Name, product.Stock, quantity)
		}

		item := domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		}
		items = append(items, item)
		total += item.LineTotal()
	}

	order := &domain.Order{
		ID:              orderID,
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Items:           items,
		TotalPrice:      domain.Round2(total),
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.CreateWithStock(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Float64("total_price", order.TotalPrice),
		slog.Int("items", len(order.Items)),
	)

	return order, nil
}
