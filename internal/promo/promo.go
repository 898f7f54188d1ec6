package promo

import (
	"context"

	"bookshop/internal/model"

	"github.com/shopspring/decimal"
)

// Evaluator decides whether a promo code may be applied to an order.
type Evaluator interface {
	// Evaluate looks up the code and checks, in order: existence, active flag,
	// expiry, usage cap and minimum order amount. The first failing check is
	// returned as a business rule violation.
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*model.PromoCode, error)
}

// Set is a collection of promo code definitions keyed by normalised code.
type Set interface {
	// Get returns the definition for a code.
	Get(code string) (model.PromoCode, bool)

	// Size returns the number of codes in the set.
	Size() int

	// Codes returns the definitions in insertion order.
	Codes() []model.PromoCode
}

// Loader reads a gzipped promo CSV file.
type Loader interface {
	Load(ctx context.Context, path string) (Set, error)
}
