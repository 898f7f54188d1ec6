package repository

import (
	"context"
	"errors"
	"time"

	"bookshop/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateKey is returned when an insert collides with an existing primary key.
var ErrDuplicateKey = errors.New("duplicate key")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products, newest first, with pagination support.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when missing.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves the products with the given IDs. Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// GetStockLevels reads the current stock of the given products.
	// Products that do not exist are absent from the result.
	GetStockLevels(ctx context.Context, ids []int64) ([]model.StockLevel, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Exists reports whether an order with the given ID is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Create inserts a new order. Returns ErrDuplicateKey when the ID is taken.
	Create(ctx context.Context, order *model.Order) error

	// CreateItems inserts the order's items and advances its checkout step to
	// items_written in one transaction.
	CreateItems(ctx context.Context, orderID string, items []model.OrderItem) error

	// AdjustItemStock decrements product stock for one order item, flooring at zero.
	// It applies at most once per item and reports whether it did so.
	AdjustItemStock(ctx context.Context, orderID string, productID int64) (bool, error)

	// SetCheckoutStep records checkout progress for an order.
	SetCheckoutStep(ctx context.Context, orderID string, step model.CheckoutStep) error

	// GetByID retrieves an order by its ID along with its items. Returns nil when missing.
	GetByID(ctx context.Context, id string) (*model.Order, []model.OrderItem, error)

	// List retrieves orders, newest first, matching the filter.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// ListShipped retrieves shipped orders that carry a tracking number.
	ListShipped(ctx context.Context) ([]model.Order, error)

	// ListIncompleteCheckouts retrieves orders whose items were written before the
	// cutoff but whose checkout never completed.
	ListIncompleteCheckouts(ctx context.Context, before time.Time) ([]model.Order, error)

	// UpdateStatus sets an order's status when it is currently in the expected state.
	// Returns false when no row matched.
	UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error)

	// SetTrackingNumber stores a tracking number without touching the status.
	SetTrackingNumber(ctx context.Context, id, trackingNumber string) (bool, error)

	// MarkShipped stores the tracking number and moves a non-cancelled order to shipped.
	MarkShipped(ctx context.Context, id, trackingNumber string) (bool, error)

	// MarkDelivered moves an order to delivered only if its stored tracking
	// number matches.
	MarkDelivered(ctx context.Context, id, trackingNumber string) (bool, error)
}

// PromoRepository defines the interface for promo code data access operations.
type PromoRepository interface {
	// GetByCode retrieves a promo code by its normalised code. Returns nil when missing.
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)

	// IncrementUsage adds one redemption to the code's usage counter.
	IncrementUsage(ctx context.Context, code string) error

	// Upsert inserts or replaces promo code definitions keyed by code.
	// Usage counters of existing codes are preserved.
	Upsert(ctx context.Context, codes []model.PromoCode) (int, error)
}

// SettingsRepository reads the operator-managed key/value settings table.
type SettingsRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
}
