package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/event"
	"github.com/reviewvibe/reviewvibe/internal/repository"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

// OrderService implements the business logic for order lifecycle operations.
type OrderService struct {
	repo     repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetOrder retrieves an order by its ID, enforcing ownership.
func (s *OrderService) GetOrder(ctx context.Context, id, userID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of the user's orders.
func (s *OrderService) ListOrders(ctx context.Context, userID string, status *string, page, perPage int) ([]domain.Order, int, error) {
	if status != nil && !domain.IsValidStatus(*status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", *status, strings.Join(domain.ValidStatuses(), ", ")))
	}

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	filter := repository.OrderFilter{
		UserID:  &userID,
		Status:  status,
		Page:    page,
		PerPage: perPage,
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus transitions the order to a new fulfillment status with
// validation. Cancellation goes through CancelOrder so stock is restored.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, userID, newStatus string) (*domain.Order, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", newStatus, strings.Join(domain.ValidStatuses(), ", ")))
	}
	if newStatus == domain.OrderStatusCancelled {
		return s.CancelOrder(ctx, id, userID)
	}

	order, err := s.GetOrder(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(newStatus) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition from %q to %q", order.Status, newStatus))
	}

	oldStatus := order.Status

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	order.Status = newStatus
	return order, nil
}

// UpdatePaymentStatus transitions the order's payment status with validation.
// A successful payment on a pending order also moves fulfillment to
// processing, in the same write.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id, userID, newPaymentStatus string) (*domain.Order, error) {
	if !domain.IsValidPaymentStatus(newPaymentStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment status %q, must be one of: %s", newPaymentStatus, strings.Join(domain.ValidPaymentStatuses(), ", ")))
	}

	order, err := s.GetOrder(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionPaymentTo(newPaymentStatus) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition payment from %q to %q", order.PaymentStatus, newPaymentStatus))
	}

	var orderStatus *string
	if newPaymentStatus == domain.PaymentStatusPaid && order.Status == domain.OrderStatusPending {
		processing := domain.OrderStatusProcessing
		orderStatus = &processing
	}

	if err := s.repo.UpdatePaymentStatus(ctx, id, newPaymentStatus, orderStatus); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	s.logger.InfoContext(ctx, "order payment status updated",
		slog.String("order_id", id),
		slog.String("old_payment_status", order.PaymentStatus),
		slog.String("new_payment_status", newPaymentStatus),
	)

	order.PaymentStatus = newPaymentStatus
	if orderStatus != nil {
		oldStatus := order.Status
		order.Status = *orderStatus

		if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, order.Status); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}

// CancelOrder cancels an order, restoring item quantities to stock. The
// payment status is marked refunded in the same transaction whether or not
// payment had settled.
func (s *OrderService) CancelOrder(ctx context.Context, id, userID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !order.IsCancellable() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot cancel order in %q status", order.Status))
	}

	if err := s.repo.CancelWithRestock(ctx, order); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	order.Status = domain.OrderStatusCancelled
	order.PaymentStatus = domain.PaymentStatusRefunded

	if err := s.producer.PublishOrderCancelled(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", id),
		slog.String("payment_status", order.PaymentStatus),
	)

	return order, nil
}

// OrderSummary aggregates order counts and spend for the user.
func (s *OrderService) OrderSummary(ctx context.Context, userID string) (*domain.OrderSummary, error) {
	summary, err := s.repo.Summary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("order summary: %w", err)
	}
	return summary, nil
}
