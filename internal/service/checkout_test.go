package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

func newCheckoutService(products *mockProductRepository, orders *mockOrderRepository) *CheckoutService {
	return NewCheckoutService(products, orders, newTestProducer(), newTestLogger())
}

func catalogProducts() map[string]domain.Product {
	return map[string]domain.Product{
		"prod-1": {ID: "prod-1", Name: "Wireless Earbuds", Price: 49.99, Stock: 10},
		"prod-2": {ID: "prod-2", Name: "Phone Case", Price: 12.50, Stock: 3},
	}
}

func TestCheckout_Success(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	products.On("GetByIDs", ctx, []string{"prod-1", "prod-2"}).Return(catalogProducts(), nil)
	orders.On("CreateWithStock", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items: []CheckoutItemInput{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
		ShippingAddress: &domain.Address{FullName: "John Doe", City: "Springfield", Country: "US"},
		PaymentMethod:   "card",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "user-123", order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 2)

	// Name and price are snapshotted from the catalog, never from the client.
	assert.Equal(t, "Wireless Earbuds", order.Items[0].Name)
	assert.InDelta(t, 49.99, order.Items[0].Price, 1e-9)

	// 49.99*2 + 12.50 = 112.48
	assert.InDelta(t, 112.48, order.TotalPrice, 1e-9)

	products.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestCheckout_MergesDuplicateLines(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	products.On("GetByIDs", ctx, []string{"prod-2"}).Return(catalogProducts(), nil)

	// 2 + 2 merged = 4, but only 3 in stock.
	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items: []CheckoutItemInput{
			{ProductID: "prod-2", Quantity: 2},
			{ProductID: "prod-2", Quantity: 2},
		},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	orders.AssertNotCalled(t, "CreateWithStock")
}

func TestCheckout_InsufficientStock(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	products.On("GetByIDs", ctx, []string{"prod-2"}).Return(catalogProducts(), nil)

	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items:  []CheckoutItemInput{{ProductID: "prod-2", Quantity: 5}},
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "Phone Case")
	assert.Contains(t, appErr.Message, "Available: 3")
	assert.Contains(t, appErr.Message, "Requested: 5")

	orders.AssertNotCalled(t, "CreateWithStock")
}

func TestCheckout_UnknownProduct(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	products.On("GetByIDs", ctx, []string{"prod-ghost"}).Return(map[string]domain.Product{}, nil)

	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items:  []CheckoutItemInput{{ProductID: "prod-ghost", Quantity: 1}},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	orders.AssertNotCalled(t, "CreateWithStock")
}

func TestCheckout_EmptyCart(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)

	order, err := svc.Checkout(context.Background(), CheckoutInput{UserID: "user-123"})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	products.AssertNotCalled(t, "GetByIDs")
}

func TestCheckout_ZeroQuantity(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)

	order, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID: "user-123",
		Items:  []CheckoutItemInput{{ProductID: "prod-1", Quantity: 0}},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	products.AssertNotCalled(t, "GetByIDs")
}

func TestCheckout_MissingUser(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)

	order, err := svc.Checkout(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductID: "prod-1", Quantity: 1}},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCheckout_RepositoryStockRace(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	// The dry-run passes but another checkout drains stock before the
	// transaction runs; the conditional decrement reports the truth.
	products.On("GetByIDs", ctx, []string{"prod-1"}).Return(catalogProducts(), nil)
	orders.On("CreateWithStock", ctx, mock.AnythingOfType("*domain.Order")).
		Return(apperrors.InsufficientStock("Wireless Earbuds", 1, 2))

	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items:  []CheckoutItemInput{{ProductID: "prod-1", Quantity: 2}},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	orders.AssertExpectations(t)
}

func TestCheckout_RoundsTotal(t *testing.T) {
	products := new(mockProductRepository)
	orders := new(mockOrderRepository)
	svc := newCheckoutService(products, orders)
	ctx := context.Background()

	products.On("GetByIDs", ctx, []string{"prod-x"}).Return(map[string]domain.Product{
		"prod-x": {ID: "prod-x", Name: "Sticker", Price: 0.1, Stock: 100},
	}, nil)
	orders.On("CreateWithStock", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: "user-123",
		Items:  []CheckoutItemInput{{ProductID: "prod-x", Quantity: 3}},
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.30, order.TotalPrice, 1e-9)
	assert.Equal(t, order.TotalPrice, domain.Round2(order.TotalPrice))
}
