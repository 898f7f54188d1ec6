package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PromoCode is a discount code redeemable at checkout.
// Exactly one of DiscountPercent and DiscountAmount is set.
type PromoCode struct {
	Code            string           `json:"code" db:"code"`
	IsActive        bool             `json:"isActive" db:"is_active"`
	ValidUntil      *time.Time       `json:"validUntil,omitempty" db:"valid_until"`
	MaxUses         *int             `json:"maxUses,omitempty" db:"max_uses"`
	CurrentUses     int              `json:"currentUses" db:"current_uses"`
	MinOrderAmount  *decimal.Decimal `json:"minOrderAmount,omitempty" db:"min_order_amount"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty" db:"discount_percent"`
	DiscountAmount  *decimal.Decimal `json:"discountAmount,omitempty" db:"discount_amount"`
}

// IsPercent reports whether the code discounts by a percentage of the subtotal.
func (p *PromoCode) IsPercent() bool {
	return p.DiscountPercent != nil
}

// NormalizePromoCode trims and upper-cases a promo code for lookup.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoValidationRequest is the payload for previewing a promo code against a cart subtotal.
type PromoValidationRequest struct {
	Code     string          `json:"code" validate:"required,max=64"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// PromoValidationResponse describes the discount a promo code yields for a subtotal.
type PromoValidationResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}
