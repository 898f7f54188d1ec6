package pricing

import (
	"testing"

	"bookshop/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		lines         []Line
		promo         *model.PromoCode
		gross         string
		discount      string
		subtotal      string
		promoDiscount string
		total         string
	}{
		{
			name:          "Single line without promo",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("300"), Quantity: 2}},
			gross:         "600",
			discount:      "0",
			subtotal:      "600",
			promoDiscount: "0",
			total:         "600",
		},
		{
			name:  "Percent promo on subtotal",
			lines: []Line{{ProductID: 1, UnitPrice: dec("300"), Quantity: 2}},
			promo: &model.PromoCode{
				Code:            "SPRING10",
				DiscountPercent: decPtr("10"),
				MinOrderAmount:  decPtr("500"),
			},
			gross:         "600",
			discount:      "0",
			subtotal:      "600",
			promoDiscount: "60",
			total:         "540",
		},
		{
			name: "Item discount then percent promo",
			lines: []Line{
				{ProductID: 1, UnitPrice: dec("200"), Quantity: 1, DiscountPercent: 25},
				{ProductID: 2, UnitPrice: dec("100"), Quantity: 3},
			},
			promo:         &model.PromoCode{DiscountPercent: decPtr("10")},
			gross:         "500",
			discount:      "50",
			subtotal:      "450",
			promoDiscount: "45",
			total:         "405",
		},
		{
			name:          "Fixed promo capped at subtotal",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("40"), Quantity: 1}},
			promo:         &model.PromoCode{DiscountAmount: decPtr("100")},
			gross:         "40",
			discount:      "0",
			subtotal:      "40",
			promoDiscount: "40",
			total:         "0",
		},
		{
			name:          "Fixed promo below subtotal",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("149.99"), Quantity: 2}},
			promo:         &model.PromoCode{DiscountAmount: decPtr("50")},
			gross:         "299.98",
			discount:      "0",
			subtotal:      "299.98",
			promoDiscount: "50",
			total:         "249.98",
		},
		{
			name:          "Discount percent clamped to 100",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("80"), Quantity: 1, DiscountPercent: 150}},
			gross:         "80",
			discount:      "80",
			subtotal:      "0",
			promoDiscount: "0",
			total:         "0",
		},
		{
			name:          "Fractional cents are rounded",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("99.99"), Quantity: 1}},
			promo:         &model.PromoCode{DiscountPercent: decPtr("15")},
			gross:         "99.99",
			discount:      "0",
			subtotal:      "99.99",
			promoDiscount: "15",
			total:         "84.99",
		},
		{
			name:          "Empty cart",
			lines:         nil,
			promo:         &model.PromoCode{DiscountAmount: decPtr("10")},
			gross:         "0",
			discount:      "0",
			subtotal:      "0",
			promoDiscount: "0",
			total:         "0",
		},
		{
			name:          "Non-positive quantities ignored",
			lines:         []Line{{ProductID: 1, UnitPrice: dec("10"), Quantity: 0}, {ProductID: 2, UnitPrice: dec("5"), Quantity: 1}},
			gross:         "5",
			discount:      "0",
			subtotal:      "5",
			promoDiscount: "0",
			total:         "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := Calculate(tt.lines, tt.promo)

			assert.True(t, dec(tt.gross).Equal(totals.TotalWithoutDiscount), "gross: %s", totals.TotalWithoutDiscount)
			assert.True(t, dec(tt.discount).Equal(totals.TotalDiscount), "discount: %s", totals.TotalDiscount)
			assert.True(t, dec(tt.subtotal).Equal(totals.Subtotal), "subtotal: %s", totals.Subtotal)
			assert.True(t, dec(tt.promoDiscount).Equal(totals.PromoDiscount), "promo: %s", totals.PromoDiscount)
			assert.True(t, dec(tt.total).Equal(totals.Total), "total: %s", totals.Total)
			assert.False(t, totals.Total.IsNegative())
		})
	}
}

func TestPromoDiscount_NoPromo(t *testing.T) {
	assert.True(t, PromoDiscount(nil, dec("100")).IsZero())
	assert.True(t, PromoDiscount(&model.PromoCode{}, dec("100")).IsZero())
}

func TestLineFromProduct(t *testing.T) {
	p := &model.Product{ID: 7, Price: dec("120.50"), DiscountPercent: 10}

	line := LineFromProduct(p, 3)

	assert.Equal(t, int64(7), line.ProductID)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, 10, line.DiscountPercent)
	assert.True(t, dec("120.50").Equal(line.UnitPrice))
}
