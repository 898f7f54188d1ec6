package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an administrator may move an order from s to next.
// Delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckoutStep records how far the checkout write sequence got for an order.
type CheckoutStep string

const (
	CheckoutStepOrderCreated CheckoutStep = "order_created"
	CheckoutStepItemsWritten CheckoutStep = "items_written"
	CheckoutStepCompleted    CheckoutStep = "completed"
)

// Order represents a customer order.
type Order struct {
	ID                    string          `json:"id" db:"id"`
	CustomerName          string          `json:"customerName" db:"customer_name"`
	CustomerEmail         string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone         string          `json:"customerPhone" db:"customer_phone"`
	CustomerAddress       string          `json:"customerAddress" db:"customer_address"`
	CustomerCity          string          `json:"customerCity" db:"customer_city"`
	NovaPoshtaBranch      *string         `json:"novaPoshtaBranch,omitempty" db:"nova_poshta_branch"`
	NovaPoshtaWarehouseID *string         `json:"novaPoshtaWarehouseId,omitempty" db:"nova_poshta_warehouse_id"`
	InstagramNick         *string         `json:"instagramNick,omitempty" db:"instagram_nick"`
	VisitedPsychologist   bool            `json:"visitedPsychologist" db:"visited_psychologist"`
	PromoCode             *string         `json:"promoCode,omitempty" db:"promo_code"`
	TotalAmount           decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Status                OrderStatus     `json:"status" db:"status"`
	TrackingNumber        *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
	UserID                *string         `json:"userId,omitempty" db:"user_id"`
	CheckoutStep          CheckoutStep    `json:"-" db:"checkout_step"`
	CreatedAt             time.Time       `json:"createdAt" db:"created_at"`
}

// OrderItem represents a line item in an order. PriceAtTime is the unit price
// captured when the order was placed.
type OrderItem struct {
	OrderID       string          `json:"-" db:"order_id"`
	ProductID     int64           `json:"productId" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	PriceAtTime   decimal.Decimal `json:"priceAtTime" db:"price_at_time"`
	StockAdjusted bool            `json:"-" db:"stock_adjusted"`
}

// MaxLineQuantity caps the quantity of one product in a cart, after merging
// repeated lines. Keep the validate tag on CartLine.Quantity in step.
const MaxLineQuantity = 1000

// MaxOrderAmount is the largest total the orders table can store.
var MaxOrderAmount = decimal.RequireFromString("99999999.99")

// CartLine is a single product and quantity submitted at checkout.
type CartLine struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=1000"`
}

// OrderRequest represents the request payload for placing an order.
type OrderRequest struct {
	Items                 []CartLine `json:"items" validate:"required,min=1,dive"`
	CustomerName          string     `json:"customerName" validate:"required,max=200"`
	CustomerEmail         string     `json:"customerEmail" validate:"required,email"`
	CustomerPhone         string     `json:"customerPhone" validate:"required,min=9,max=20"`
	CustomerAddress       string     `json:"customerAddress" validate:"max=500"`
	CustomerCity          string     `json:"customerCity" validate:"required,max=200"`
	NovaPoshtaBranch      *string    `json:"novaPoshtaBranch,omitempty"`
	NovaPoshtaWarehouseID *string    `json:"novaPoshtaWarehouseId,omitempty"`
	InstagramNick         *string    `json:"instagramNick,omitempty" validate:"omitempty,max=100"`
	VisitedPsychologist   bool       `json:"visitedPsychologist"`
	PromoCode             *string    `json:"promoCode,omitempty"`
	UserID                *string    `json:"userId,omitempty"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order
	Items        []OrderItem `json:"items"`
	FreeDelivery bool        `json:"freeDelivery"`
}

// CheckoutResult is returned after an order has been placed. CheckoutStep is
// left empty when checkout completed; otherwise it names the last step that
// was recorded and the order needs attention before it can be fulfilled.
type CheckoutResult struct {
	OrderID       string          `json:"orderId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PromoDiscount decimal.Decimal `json:"promoDiscount"`
	FreeDelivery  bool            `json:"freeDelivery"`
	CheckoutStep  CheckoutStep    `json:"checkoutStep,omitempty"`
}

// StatusUpdateRequest is the admin payload for changing an order status.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

// TrackingUpdateRequest is the admin payload for entering a tracking number by hand.
type TrackingUpdateRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=64"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}
