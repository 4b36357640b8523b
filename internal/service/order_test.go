package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/repository"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

func newOrderService(repo *mockOrderRepository) *OrderService {
	return NewOrderService(repo, newTestProducer(), newTestLogger())
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-123",
		UserID:        "user-123",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		TotalPrice:    99.98,
		Items: []domain.OrderItem{
			{ID: "item-1", OrderID: "order-123", ProductID: "prod-1", Name: "Widget", Price: 49.99, Quantity: 2},
		},
	}
}

// --- GetOrder Tests ---

func TestGetOrder_Success(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)

	order, err := svc.GetOrder(ctx, "order-123", "user-123")
	require.NoError(t, err)
	assert.Equal(t, "order-123", order.ID)

	repo.AssertExpectations(t)
}

func TestGetOrder_WrongUserIsForbidden(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)

	order, err := svc.GetOrder(ctx, "order-123", "someone-else")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	repo.AssertExpectations(t)
}

func TestGetOrder_NotFound(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("order", "missing"))

	order, err := svc.GetOrder(ctx, "missing", "user-123")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	repo.AssertExpectations(t)
}

// --- ListOrders Tests ---

func TestListOrders_ScopesToUser(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("List", ctx, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.UserID != nil && *f.UserID == "user-123" && f.Page == 1 && f.PerPage == 20
	})).Return([]domain.Order{*pendingOrder()}, 1, nil)

	orders, total, err := svc.ListOrders(ctx, "user-123", nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)

	repo.AssertExpectations(t)
}

func TestListOrders_InvalidStatusFilter(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)

	_, _, err := svc.ListOrders(context.Background(), "user-123", strPtr("teleported"), 1, 20)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.AssertNotCalled(t, "List")
}

func TestListOrders_CapsPerPage(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("List", ctx, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.PerPage == 100
	})).Return([]domain.Order{}, 0, nil)

	_, _, err := svc.ListOrders(ctx, "user-123", nil, 1, 5000)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

// --- UpdateOrderStatus Tests ---

func TestUpdateOrderStatus_Success(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)
	repo.On("UpdateStatus", ctx, "order-123", domain.OrderStatusProcessing).Return(nil)

	order, err := svc.UpdateOrderStatus(ctx, "order-123", "user-123", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)

	repo.AssertExpectations(t)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)

	order, err := svc.UpdateOrderStatus(context.Background(), "order-123", "user-123", "teleported")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.AssertNotCalled(t, "GetByID")
}

func TestUpdateOrderStatus_IllegalTransitionIsConflict(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	// pending -> delivered skips shipping.
	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)

	order, err := svc.UpdateOrderStatus(ctx, "order-123", "user-123", domain.OrderStatusDelivered)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestUpdateOrderStatus_TerminalStateIsConflict(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	delivered := pendingOrder()
	delivered.Status = domain.OrderStatusDelivered
	repo.On("GetByID", ctx, "order-123").Return(delivered, nil)

	_, err := svc.UpdateOrderStatus(ctx, "order-123", "user-123", domain.OrderStatusShipped)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestUpdateOrderStatus_CancelledRoutesThroughRestock(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)
	repo.On("CancelWithRestock", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := svc.UpdateOrderStatus(ctx, "order-123", "user-123", domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	repo.AssertNotCalled(t, "UpdateStatus")
	repo.AssertExpectations(t)
}

func TestUpdateOrderStatus_WrongUserIsForbidden(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)

	_, err := svc.UpdateOrderStatus(ctx, "order-123", "intruder", domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	repo.AssertNotCalled(t, "UpdateStatus")
}

// --- UpdatePaymentStatus Tests ---

func TestUpdatePaymentStatus_PaidAdvancesPendingOrder(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)
	repo.On("UpdatePaymentStatus", ctx, "order-123", domain.PaymentStatusPaid,
		mock.MatchedBy(func(s *string) bool {
			return s != nil && *s == domain.OrderStatusProcessing
		})).Return(nil)

	order, err := svc.UpdatePaymentStatus(ctx, "order-123", "user-123", domain.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)

	repo.AssertExpectations(t)
}

func TestUpdatePaymentStatus_FailedLeavesFulfillmentAlone(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)
	repo.On("UpdatePaymentStatus", ctx, "order-123", domain.PaymentStatusFailed,
		(*string)(nil)).Return(nil)

	order, err := svc.UpdatePaymentStatus(ctx, "order-123", "user-123", domain.PaymentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	repo.AssertExpectations(t)
}

func TestUpdatePaymentStatus_RefundRequiresPaid(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)

	_, err := svc.UpdatePaymentStatus(ctx, "order-123", "user-123", domain.PaymentStatusRefunded)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	repo.AssertNotCalled(t, "UpdatePaymentStatus")
}

func TestUpdatePaymentStatus_InvalidValue(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)

	_, err := svc.UpdatePaymentStatus(context.Background(), "order-123", "user-123", "iou")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.AssertNotCalled(t, "GetByID")
}

// --- CancelOrder Tests ---

func TestCancelOrder_Success(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "order-123").Return(pendingOrder(), nil)
	repo.On("CancelWithRestock", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	// Cancellation refunds even when payment never settled.
	order, err := svc.CancelOrder(ctx, "order-123", "user-123")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, order.PaymentStatus)

	repo.AssertExpectations(t)
}

func TestCancelOrder_PaidOrderIsRefunded(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	paid := pendingOrder()
	paid.Status = domain.OrderStatusProcessing
	paid.PaymentStatus = domain.PaymentStatusPaid

	repo.On("GetByID", ctx, "order-123").Return(paid, nil)
	repo.On("CancelWithRestock", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := svc.CancelOrder(ctx, "order-123", "user-123")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, order.PaymentStatus)

	repo.AssertExpectations(t)
}

func TestCancelOrder_ShippedIsConflict(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	shipped := pendingOrder()
	shipped.Status = domain.OrderStatusShipped
	repo.On("GetByID", ctx, "order-123").Return(shipped, nil)

	order, err := svc.CancelOrder(ctx, "order-123", "user-123")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	repo.AssertNotCalled(t, "CancelWithRestock")
}

// --- OrderSummary Tests ---

func TestOrderSummary_Success(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := newOrderService(repo)
	ctx := context.Background()

	repo.On("Summary", ctx, "user-123").Return(&domain.OrderSummary{
		TotalOrders: 4,
		TotalSpent:  200.00,
		OrdersByStatus: map[string]int{
			domain.OrderStatusPending: 1, domain.OrderStatusProcessing: 0,
			domain.OrderStatusShipped: 1, domain.OrderStatusDelivered: 2,
			domain.OrderStatusCancelled: 0,
		},
	}, nil)

	summary, err := svc.OrderSummary(ctx, "user-123")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalOrders)
	assert.Len(t, summary.OrdersByStatus, 5)

	repo.AssertExpectations(t)
}
