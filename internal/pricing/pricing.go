// Package pricing derives cart and order totals. Every total persisted on an
// order comes from Calculate.
package pricing

import (
	"bookshop/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line.
type Line struct {
	ProductID       int64
	UnitPrice       decimal.Decimal
	Quantity        int
	DiscountPercent int
}

// Totals is the breakdown of a cart's price.
type Totals struct {
	TotalWithoutDiscount decimal.Decimal `json:"totalWithoutDiscount"`
	TotalDiscount        decimal.Decimal `json:"totalDiscount"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	PromoDiscount        decimal.Decimal `json:"promoDiscount"`
	Total                decimal.Decimal `json:"total"`
}

// LineFromProduct prices a quantity of product at its current catalogue price.
func LineFromProduct(p *model.Product, quantity int) Line {
	return Line{
		ProductID:       p.ID,
		UnitPrice:       p.Price,
		Quantity:        quantity,
		DiscountPercent: p.DiscountPercent,
	}
}

// Calculate computes totals for the lines with an optional promo applied to the
// item-discounted subtotal. All amounts are rounded to cents and never negative.
func Calculate(lines []Line, promo *model.PromoCode) Totals {
	gross := decimal.Zero
	discount := decimal.Zero

	for _, l := range lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		gross = gross.Add(lineTotal)
		discount = discount.Add(lineTotal.Mul(percent(decimal.NewFromInt(int64(l.DiscountPercent)))))
	}

	gross = gross.Round(2)
	discount = discount.Round(2)
	subtotal := nonNegative(gross.Sub(discount))
	promoDiscount := PromoDiscount(promo, subtotal)

	return Totals{
		TotalWithoutDiscount: gross,
		TotalDiscount:        discount,
		Subtotal:             subtotal,
		PromoDiscount:        promoDiscount,
		Total:                nonNegative(subtotal.Sub(promoDiscount)),
	}
}

// PromoDiscount is the amount a promo takes off a subtotal: a percentage of it,
// or a fixed amount capped at the subtotal.
func PromoDiscount(promo *model.PromoCode, subtotal decimal.Decimal) decimal.Decimal {
	if promo == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch {
	case promo.DiscountPercent != nil:
		d = subtotal.Mul(percent(*promo.DiscountPercent))
	case promo.DiscountAmount != nil:
		d = decimal.Min(*promo.DiscountAmount, subtotal)
	default:
		return decimal.Zero
	}

	return decimal.Min(nonNegative(d.Round(2)), subtotal)
}

// percent converts a 0-100 percentage to a clamped fraction.
func percent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		p = hundred
	}
	return p.Div(hundred)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
