package service

import (
	"context"

	"bookshop/internal/model"
	"bookshop/internal/pricing"
	"bookshop/internal/promo"

	"github.com/rs/zerolog"
)

// promoService implements PromoService.
type promoService struct {
	evaluator promo.Evaluator
	logger    zerolog.Logger
}

// NewPromoService creates a promo preview service.
func NewPromoService(evaluator promo.Evaluator, logger zerolog.Logger) PromoService {
	return &promoService{
		evaluator: evaluator,
		logger:    logger.With().Str("service", "promo").Logger(),
	}
}

// Preview evaluates a code against a cart subtotal without redeeming it.
func (s *promoService) Preview(ctx context.Context, req *model.PromoValidationRequest) (*model.PromoValidationResponse, error) {
	if req.Subtotal.IsNegative() {
		return nil, model.NewValidationError("Subtotal must not be negative")
	}

	code, err := s.evaluator.Evaluate(ctx, req.Code, req.Subtotal)
	if err != nil {
		return nil, err
	}

	discount := pricing.PromoDiscount(code, req.Subtotal)
	return &model.PromoValidationResponse{
		Code:     code.Code,
		Discount: discount,
		Total:    req.Subtotal.Sub(discount),
	}, nil
}
