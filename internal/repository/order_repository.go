package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, customer_name, customer_email, customer_phone, customer_address,
	customer_city, nova_poshta_branch, nova_poshta_warehouse_id, instagram_nick,
	visited_psychologist, promo_code, total_amount, status, tracking_number,
	user_id, checkout_step, created_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.CustomerAddress,
		&o.CustomerCity,
		&o.NovaPoshtaBranch,
		&o.NovaPoshtaWarehouseID,
		&o.InstagramNick,
		&o.VisitedPsychologist,
		&o.PromoCode,
		&o.TotalAmount,
		&o.Status,
		&o.TrackingNumber,
		&o.UserID,
		&o.CheckoutStep,
		&o.CreatedAt,
	)
	return o, err
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// Exists reports whether an order with the given ID is stored.
func (r *orderRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to check order existence")
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new order.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_name, customer_email, customer_phone, customer_address,
			customer_city, nova_poshta_branch, nova_poshta_warehouse_id, instagram_nick,
			visited_psychologist, promo_code, total_amount, status, user_id, checkout_step
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		order.ID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.CustomerAddress,
		order.CustomerCity,
		order.NovaPoshtaBranch,
		order.NovaPoshtaWarehouseID,
		order.InstagramNick,
		order.VisitedPsychologist,
		order.PromoCode,
		order.TotalAmount,
		order.Status,
		order.UserID,
		order.CheckoutStep,
	).Scan(&order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn().Str("order_id", order.ID).Msg("order id already taken")
			return fmt.Errorf("failed to create order %s: %w", order.ID, ErrDuplicateKey)
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID).
		Msg("order created successfully")

	return nil
}

// CreateItems inserts the order's items and advances its checkout step.
func (r *orderRepository) CreateItems(ctx context.Context, orderID string, items []model.OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
		VALUES ($1, $2, $3, $4)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, orderID, item.ProductID, item.Quantity, item.PriceAtTime)
	}
	batch.Queue(`UPDATE orders SET checkout_step = $2 WHERE id = $1`, orderID, model.CheckoutStepItemsWritten)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			r.logger.Error().
				Err(err).
				Str("order_id", orderID).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	if _, err := results.Exec(); err != nil {
		_ = results.Close()
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to advance checkout step")
		return fmt.Errorf("failed to advance checkout step: %w", err)
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to commit order items")
		return fmt.Errorf("failed to commit order items: %w", err)
	}

	r.logger.Debug().
		Str("order_id", orderID).
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// AdjustItemStock flips the item's stock_adjusted flag and applies the decrement
// in one statement, so a retried call never decrements twice.
func (r *orderRepository) AdjustItemStock(ctx context.Context, orderID string, productID int64) (bool, error) {
	query := `
		WITH item AS (
			UPDATE order_items
			SET stock_adjusted = TRUE
			WHERE order_id = $1 AND product_id = $2 AND NOT stock_adjusted
			RETURNING quantity
		), adjusted AS (
			UPDATE products p
			SET stock_quantity = GREATEST(p.stock_quantity - item.quantity, 0)
			FROM item
			WHERE p.id = $2 AND p.stock_quantity IS NOT NULL
		)
		SELECT COUNT(*) FROM item
	`

	var flipped int
	if err := r.pool.QueryRow(ctx, query, orderID, productID).Scan(&flipped); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID).
			Int64("product_id", productID).
			Msg("failed to adjust stock")
		return false, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return flipped > 0, nil
}

// SetCheckoutStep records checkout progress for an order.
func (r *orderRepository) SetCheckoutStep(ctx context.Context, orderID string, step model.CheckoutStep) error {
	_, err := r.pool.Exec(ctx, `UPDATE orders SET checkout_step = $2 WHERE id = $1`, orderID, step)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Str("step", string(step)).Msg("failed to set checkout step")
		return fmt.Errorf("failed to set checkout step: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, []model.OrderItem, error) {
	orderQuery := `SELECT` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.pool.QueryRow(ctx, orderQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT order_id, product_id, quantity, price_at_time, stock_adjusted
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtTime, &item.StockAdjusted)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, items, nil
}

// List retrieves orders, newest first, matching the filter.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	return r.queryOrders(ctx, query, status, filter.Limit, filter.Offset)
}

// ListShipped retrieves shipped orders that carry a tracking number.
func (r *orderRepository) ListShipped(ctx context.Context) ([]model.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE status = $1 AND tracking_number IS NOT NULL AND tracking_number <> ''
		ORDER BY created_at
	`
	return r.queryOrders(ctx, query, model.OrderStatusShipped)
}

// ListIncompleteCheckouts retrieves orders stuck after their items were written.
func (r *orderRepository) ListIncompleteCheckouts(ctx context.Context, before time.Time) ([]model.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE checkout_step = $1 AND created_at < $2
		ORDER BY created_at
	`
	return r.queryOrders(ctx, query, model.CheckoutStepItemsWritten, before)
}

func (r *orderRepository) execUpdate(ctx context.Context, op, id, query string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msgf("failed to %s", op)
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatus sets an order's status when it is currently in the expected state.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	return r.execUpdate(ctx, "update order status", id,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to)
}

// SetTrackingNumber stores a tracking number without touching the status.
func (r *orderRepository) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (bool, error) {
	return r.execUpdate(ctx, "set tracking number", id,
		`UPDATE orders SET tracking_number = $2 WHERE id = $1`,
		id, trackingNumber)
}

// MarkShipped stores the tracking number and moves an order that is neither
// cancelled nor delivered to shipped.
func (r *orderRepository) MarkShipped(ctx context.Context, id, trackingNumber string) (bool, error) {
	return r.execUpdate(ctx, "mark order shipped", id,
		`UPDATE orders SET tracking_number = $2, status = $3 WHERE id = $1 AND status NOT IN ($4, $5)`,
		id, trackingNumber, model.OrderStatusShipped, model.OrderStatusCancelled, model.OrderStatusDelivered)
}

// MarkDelivered moves an order to delivered only if its stored tracking number matches.
func (r *orderRepository) MarkDelivered(ctx context.Context, id, trackingNumber string) (bool, error) {
	return r.execUpdate(ctx, "mark order delivered", id,
		`UPDATE orders SET status = $3 WHERE id = $1 AND tracking_number = $2 AND status <> $4`,
		id, trackingNumber, model.OrderStatusDelivered, model.OrderStatusCancelled)
}
