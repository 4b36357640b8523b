package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/repository"
	"github.com/reviewvibe/reviewvibe/pkg/database"
	apperrors "github.com/reviewvibe/reviewvibe/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithStock inserts an order and its items, decrementing product stock
// in the same transaction. The decrement is conditional on sufficient stock,
// so two concurrent checkouts can never drive stock negative: the row lock
// taken by the first UPDATE serializes the second, whose guard then fails.
func (r *OrderRepository) CreateWithStock(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	decrementQuery := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND stock >= $1`

	now := time.Now().UTC()
	for _, item := range o.Items {
		ct, err := tx.Exec(ctx, decrementQuery, item.Quantity, now, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			var (
				name  string
				stock int
			)
			err := tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, item.ProductID).
				Scan(&name, &stock)
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("product", item.ProductID)
			}
			if err != nil {
				return fmt.Errorf("check stock: %w", err)
			}
			return apperrors.InsufficientStock(name, stock, item.Quantity)
		}
	}

	var shippingJSON []byte
	if o.ShippingAddress != nil {
		shippingJSON, err = json.Marshal(o.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
	}

	orderQuery := `
		INSERT INTO orders (id, user_id, status, payment_status, total_price, shipping_address, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.TotalPrice,
		shippingJSON,
		o.PaymentMethod,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Price,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	// Order and items in one query via LEFT JOIN + JSONB_AGG; avoids the N+1
	// of a second items query.
	orderQuery := `
		SELECT
			o.id, o.user_id, o.status, o.payment_status, o.total_price,
			o.shipping_address, o.payment_method, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'name', oi.name,
						'price', oi.price,
						'quantity', oi.quantity
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id, o.user_id, o.status, o.payment_status, o.total_price,
			o.shipping_address, o.payment_method, o.created_at, o.updated_at`

	var (
		o            domain.Order
		shippingJSON []byte
		itemsJSON    []byte
	)

	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.TotalPrice,
		&shippingJSON,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(shippingJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, status, payment_status, total_price, shipping_address, payment_method, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.PaymentStatus,
			&o.TotalPrice,
			&shippingJSON,
			&o.PaymentMethod,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
			var addr domain.Address
			if err := json.Unmarshal(shippingJSON, &addr); err != nil {
				return nil, 0, fmt.Errorf("unmarshal shipping address: %w", err)
			}
			o.ShippingAddress = &addr
		}

		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for the page in a single query.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, name, price, quantity
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.Name,
				&item.Price,
				&item.Quantity,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus changes the fulfillment status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// UpdatePaymentStatus changes the payment status of an order. When
// orderStatus is non-nil the fulfillment status moves in the same write, so
// a successful payment advances the order atomically.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, paymentStatus string, orderStatus *string) error {
	var (
		query string
		args  []any
	)

	if orderStatus != nil {
		query = `
			UPDATE orders
			SET payment_status = $1, status = $2, updated_at = $3
			WHERE id = $4`
		args = []any{paymentStatus, *orderStatus, time.Now().UTC(), id}
	} else {
		query = `
			UPDATE orders
			SET payment_status = $1, updated_at = $2
			WHERE id = $3`
		args = []any{paymentStatus, time.Now().UTC(), id}
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// CancelWithRestock marks the order cancelled and returns its item quantities
// to stock in one transaction. The payment status always moves to refunded,
// regardless of whether payment had settled yet.
func (r *OrderRepository) CancelWithRestock(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	updateQuery := `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4`

	ct, err := tx.Exec(ctx, updateQuery, domain.OrderStatusCancelled, domain.PaymentStatusRefunded, now, o.ID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}

	restockQuery := `
		UPDATE products
		SET stock = stock + $1, updated_at = $2
		WHERE id = $3`

	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, restockQuery, item.Quantity, now, item.ProductID); err != nil {
			return fmt.Errorf("restock product: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Summary aggregates order counts and spend for a user. Cancelled orders are
// excluded from spend but still counted per status.
func (r *OrderRepository) Summary(ctx context.Context, userID string) (*domain.OrderSummary, error) {
	query := `
		SELECT status, count(*), COALESCE(SUM(total_price), 0)
		FROM orders
		WHERE user_id = $1
		GROUP BY status`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query order summary: %w", err)
	}
	defer rows.Close()

	summary := &domain.OrderSummary{OrdersByStatus: make(map[string]int, len(domain.ValidStatuses()))}
	for _, s := range domain.ValidStatuses() {
		summary.OrdersByStatus[s] = 0
	}

	for rows.Next() {
		var (
			status string
			count  int
			spent  float64
		)
		if err := rows.Scan(&status, &count, &spent); err != nil {
			return nil, fmt.Errorf("scan order summary row: %w", err)
		}
		summary.OrdersByStatus[status] = count
		summary.TotalOrders += count
		if status != domain.OrderStatusCancelled {
			summary.TotalSpent += spent
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order summary rows: %w", err)
	}

	summary.TotalSpent = domain.Round2(summary.TotalSpent)
	if counted := summary.TotalOrders - summary.OrdersByStatus[domain.OrderStatusCancelled]; counted > 0 {
		summary.AverageOrderValue = domain.Round2(summary.TotalSpent / float64(counted))
	}

	return summary, nil
}
