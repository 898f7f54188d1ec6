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

// promoRepository implements the PromoRepository interface using PostgreSQL.
type promoRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromoRepository creates a new PostgreSQL-backed promo code repository.
func NewPromoRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromoRepository {
	return &promoRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promo").Logger(),
	}
}

// GetByCode retrieves a promo code by its normalised code.
func (r *promoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	query := `
		SELECT code, is_active, valid_until, max_uses, current_uses,
		       min_order_amount, discount_percent, discount_amount
		FROM promo_codes
		WHERE code = $1
	`

	var p model.PromoCode
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&p.Code,
		&p.IsActive,
		&p.ValidUntil,
		&p.MaxUses,
		&p.CurrentUses,
		&p.MinOrderAmount,
		&p.DiscountPercent,
		&p.DiscountAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("promo_code", code).Msg("promo code not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("promo_code", code).Msg("failed to query promo code")
		return nil, fmt.Errorf("failed to query promo code: %w", err)
	}

	return &p, nil
}

// IncrementUsage adds one redemption to the code's usage counter.
func (r *promoRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE promo_codes SET current_uses = current_uses + 1 WHERE code = $1`, code)
	if err != nil {
		r.logger.Error().Err(err).Str("promo_code", code).Msg("failed to increment promo usage")
		return fmt.Errorf("failed to increment promo usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to increment promo usage: code %s: %w", code, model.ErrPromoNotFound)
	}
	return nil
}

// Upsert inserts or replaces promo code definitions keyed by code.
func (r *promoRepository) Upsert(ctx context.Context, codes []model.PromoCode) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO promo_codes (
			code, is_active, valid_until, max_uses,
			min_order_amount, discount_percent, discount_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			min_order_amount = EXCLUDED.min_order_amount,
			discount_percent = EXCLUDED.discount_percent,
			discount_amount = EXCLUDED.discount_amount
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, c := range codes {
		batch.Queue(query,
			c.Code,
			c.IsActive,
			c.ValidUntil,
			c.MaxUses,
			c.MinOrderAmount,
			c.DiscountPercent,
			c.DiscountAmount,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range codes {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			r.logger.Error().Err(err).Str("promo_code", codes[i].Code).Msg("failed to upsert promo code")
			return 0, fmt.Errorf("failed to upsert promo code %s: %w", codes[i].Code, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit promo codes")
		return 0, fmt.Errorf("failed to commit promo codes: %w", err)
	}

	r.logger.Info().Int("count", len(codes)).Msg("promo codes upserted")

	return len(codes), nil
}
