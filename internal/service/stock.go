package service

import (
	"context"
	"fmt"

	"bookshop/internal/model"
	"bookshop/internal/repository"

	"github.com/rs/zerolog"
)

// MergeCartLines folds repeated products into one line each, keeping the
// order of first appearance. Any non-positive quantity rejects the cart, as does
// a merged quantity above model.MaxLineQuantity.
func MergeCartLines(lines []model.CartLine) ([]model.CartLine, error) {
	if len(lines) == 0 {
		return nil, model.NewValidationError("Cart is empty")
	}

	merged := make([]model.CartLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.ProductID <= 0 {
			return nil, model.NewValidationError("Cart line has no product")
		}
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		if line.Quantity > model.MaxLineQuantity {
			return nil, model.ErrQuantityTooLarge
		}
		if i, ok := index[line.ProductID]; ok {
			if merged[i].Quantity > model.MaxLineQuantity-line.Quantity {
				return nil, model.ErrQuantityTooLarge
			}
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// stockValidator implements StockValidator.
type stockValidator struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewStockValidator creates a validator reading live stock from the product repository.
func NewStockValidator(productRepo repository.ProductRepository, logger zerolog.Logger) StockValidator {
	return &stockValidator{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "stock").Logger(),
	}
}

// Validate checks every line in cart order and stops at the first shortfall.
func (v *stockValidator) Validate(ctx context.Context, lines []model.CartLine) error {
	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	levels, err := v.productRepo.GetStockLevels(ctx, ids)
	if err != nil {
		v.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to read stock levels")
		return fmt.Errorf("failed to read stock levels: %w", err)
	}

	byID := make(map[int64]model.StockLevel, len(levels))
	for _, level := range levels {
		byID[level.ProductID] = level
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
		level, ok := byID[line.ProductID]
		if !ok {
			v.logger.Warn().Int64("product_id", line.ProductID).Msg("cart references unknown product")
			return model.ErrProductNotFound
		}
		if level.StockQuantity == nil {
			continue
		}
		if line.Quantity > *level.StockQuantity {
			v.logger.Info().
				Int64("product_id", line.ProductID).
				Int("requested", line.Quantity).
				Int("available", *level.StockQuantity).
				Msg("insufficient stock")
			return model.NewInsufficientStockError(model.InsufficientStock{
				ProductID: line.ProductID,
				Title:     level.Title,
				Requested: line.Quantity,
				Available: *level.StockQuantity,
			})
		}
	}

	return nil
}
