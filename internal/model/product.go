package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability describes whether a product ships immediately or is taken on pre-order.
type Availability string

const (
	AvailabilityInStock  Availability = "in_stock"
	AvailabilityPreOrder Availability = "pre_order"
)

// Product represents a book in the catalogue.
type Product struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Description     string          `json:"description" db:"description"`
	Price           decimal.Decimal `json:"price" db:"price"`
	ImageURL        *string         `json:"imageUrl,omitempty" db:"image_url"`
	Images          []string        `json:"images" db:"images"`
	MainImageIndex  int             `json:"mainImageIndex" db:"main_image_index"`
	Availability    Availability    `json:"availability" db:"availability"`
	DiscountPercent int             `json:"discountPercent" db:"discount_percent"`
	// StockQuantity is nil when the product has unlimited stock.
	StockQuantity *int      `json:"stockQuantity,omitempty" db:"stock_quantity"`
	Author        *string   `json:"author,omitempty" db:"author"`
	Publisher     *string   `json:"publisher,omitempty" db:"publisher"`
	Year          *int      `json:"year,omitempty" db:"year"`
	Pages         *int      `json:"pages,omitempty" db:"pages"`
	ISBN          *string   `json:"isbn,omitempty" db:"isbn"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// HasUnlimitedStock reports whether no stock quantity is tracked for the product.
func (p *Product) HasUnlimitedStock() bool {
	return p.StockQuantity == nil
}

// StockLevel is the live stock figure for a product as read at checkout.
type StockLevel struct {
	ProductID     int64
	Title         string
	StockQuantity *int
}
