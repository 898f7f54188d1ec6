package promo

import (
	"context"
	"fmt"
	"time"

	"bookshop/internal/model"
	"bookshop/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type evaluator struct {
	repo   repository.PromoRepository
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*evaluator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(e *evaluator) {
		e.now = now
	}
}

// NewEvaluator creates an Evaluator backed by the promo code repository.
func NewEvaluator(repo repository.PromoRepository, logger zerolog.Logger, opts ...Option) Evaluator {
	e := &evaluator{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "promo-evaluator").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate looks up and checks a promo code against a subtotal.
func (e *evaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*model.PromoCode, error) {
	normalized := model.NormalizePromoCode(code)
	if normalized == "" {
		return nil, model.ErrPromoNotFound
	}

	p, err := e.repo.GetByCode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to load promo code: %w", err)
	}
	if p == nil {
		e.logger.Debug().Str("promo_code", normalized).Msg("promo code not found")
		return nil, model.ErrPromoNotFound
	}

	if err := Check(p, subtotal, e.now()); err != nil {
		e.logger.Debug().
			Err(err).
			Str("promo_code", normalized).
			Str("subtotal", subtotal.StringFixed(2)).
			Msg("promo code rejected")
		return nil, err
	}

	return p, nil
}

// Check applies the eligibility rules to an already loaded promo code.
func Check(p *model.PromoCode, subtotal decimal.Decimal, now time.Time) error {
	if !p.IsActive {
		return model.ErrPromoInactive
	}

	if p.ValidUntil != nil && !now.Before(*p.ValidUntil) {
		return model.ErrPromoExpired
	}

	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return model.ErrPromoUsageLimit
	}

	if p.MinOrderAmount != nil && subtotal.LessThan(*p.MinOrderAmount) {
		return model.NewPromoMinOrderError(p.MinOrderAmount.StringFixed(2))
	}

	return nil
}
