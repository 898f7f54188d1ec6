package repository

import (
	"context"
	"errors"
	"fmt"

	"bookshop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	id, title, description, price, image_url, images, main_image_index,
	availability, discount_percent, stock_quantity, author, publisher,
	year, pages, isbn, created_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.Images,
		&p.MainImageIndex,
		&p.Availability,
		&p.DiscountPercent,
		&p.StockQuantity,
		&p.Author,
		&p.Publisher,
		&p.Year,
		&p.Pages,
		&p.ISBN,
		&p.CreatedAt,
	)
	return p, err
}

// List retrieves products, newest first, with pagination support.
func (r *productRepository) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products
		WHERE id = $1
	`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves the products with the given IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetStockLevels reads the current stock of the given products.
func (r *productRepository) GetStockLevels(ctx context.Context, ids []int64) ([]model.StockLevel, error) {
	if len(ids) == 0 {
		return []model.StockLevel{}, nil
	}

	query := `
		SELECT id, title, stock_quantity
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query stock levels")
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	levels := make([]model.StockLevel, 0, len(ids))
	for rows.Next() {
		var level model.StockLevel
		if err := rows.Scan(&level.ProductID, &level.Title, &level.StockQuantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan stock level row")
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, level)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating stock level rows")
		return nil, fmt.Errorf("error iterating stock levels: %w", err)
	}

	return levels, nil
}
