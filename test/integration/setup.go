package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bookshop/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the schema migrated.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, "up"); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Book is a catalogue row inserted by SeedBooks.
type Book struct {
	ID    int64
	Title string
	Price decimal.Decimal
	Stock *int
}

// SeedBooks inserts the test catalogue and returns the rows keyed by title.
// "Kobzar" has 5 in stock, "Lisova pisnia" 1, "Zakhar Berkut" is untracked.
func SeedBooks(t *testing.T, pool *pgxpool.Pool) map[string]Book {
	t.Helper()

	ctx := context.Background()
	five, one := 5, 1

	books := []Book{
		{Title: "Kobzar", Price: decimal.NewFromInt(300), Stock: &five},
		{Title: "Lisova pisnia", Price: decimal.NewFromInt(200), Stock: &one},
		{Title: "Zakhar Berkut", Price: decimal.NewFromInt(150)},
	}

	seeded := make(map[string]Book, len(books))
	for _, b := range books {
		err := pool.QueryRow(ctx,
			"INSERT INTO products (title, price, stock_quantity) VALUES ($1, $2, $3) RETURNING id",
			b.Title, b.Price, b.Stock,
		).Scan(&b.ID)
		if err != nil {
			t.Fatalf("failed to seed book %s: %v", b.Title, err)
		}
		seeded[b.Title] = b
	}
	return seeded
}

// SeedSettings writes operator settings, replacing existing values.
func SeedSettings(t *testing.T, pool *pgxpool.Pool, values map[string]string) {
	t.Helper()

	for key, value := range values {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO settings (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			key, value,
		)
		if err != nil {
			t.Fatalf("failed to seed setting %s: %v", key, err)
		}
	}
}

// SeedPromo inserts a percentage promo code.
func SeedPromo(t *testing.T, pool *pgxpool.Pool, code string, percent int, maxUses *int) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO promo_codes (code, discount_percent, max_uses) VALUES ($1, $2, $3)",
		code, decimal.NewFromInt(int64(percent)), maxUses,
	)
	if err != nil {
		t.Fatalf("failed to seed promo %s: %v", code, err)
	}
}

// StockOf returns the stock quantity of a product.
func StockOf(t *testing.T, pool *pgxpool.Pool, id int64) *int {
	t.Helper()

	var stock *int
	if err := pool.QueryRow(context.Background(),
		"SELECT stock_quantity FROM products WHERE id = $1", id).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock of %d: %v", id, err)
	}
	return stock
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "promo_codes", "settings", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
