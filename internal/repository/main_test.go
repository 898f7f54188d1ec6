package repository

import (
	"context"
	"testing"
	"time"

	"bookshop/internal/database"
	"bookshop/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with migrations applied.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, "up"))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// seedProduct inserts a product and returns its generated ID.
func seedProduct(t *testing.T, pool *pgxpool.Pool, title, price string, stock *int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (title, price, stock_quantity) VALUES ($1, $2, $3) RETURNING id`,
		title, decimal.RequireFromString(price), stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id int64) *int {
	t.Helper()

	var stock *int
	err := pool.QueryRow(context.Background(),
		`SELECT stock_quantity FROM products WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func newTestOrder(id string) *model.Order {
	return &model.Order{
		ID:                    id,
		CustomerName:          "Olena Petrenko",
		CustomerEmail:         "olena@example.com",
		CustomerPhone:         "0501234567",
		CustomerCity:          "Kyiv",
		NovaPoshtaWarehouseID: strPtr("wh-ref-1"),
		TotalAmount:           decimal.RequireFromString("600.00"),
		Status:                model.OrderStatusPending,
		CheckoutStep:          model.CheckoutStepOrderCreated,
	}
}
