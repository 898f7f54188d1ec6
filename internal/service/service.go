package service

import (
	"context"

	"bookshop/internal/carrier"
	"bookshop/internal/model"
)

// ProductService defines read operations on the catalogue.
type ProductService interface {
	// List retrieves products with pagination.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// StockValidator checks a whole cart against live stock before anything is written.
type StockValidator interface {
	// Validate fails with an insufficient stock error on the first line that
	// requests more than is available. Products without a tracked quantity
	// always pass; unknown products fail with ErrProductNotFound.
	Validate(ctx context.Context, lines []model.CartLine) error
}

// CheckoutService places orders.
type CheckoutService interface {
	// PlaceOrder runs the checkout sequence and returns the new order's ID.
	// Once the order row is written the call succeeds, even if later
	// bookkeeping steps fail.
	PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.CheckoutResult, error)
}

// OrderService defines order reads and back-office updates.
type OrderService interface {
	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*model.OrderResponse, error)

	// List retrieves orders for the back office.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus moves an order along the status lifecycle.
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error

	// SetTrackingNumber records a tracking number entered by hand.
	SetTrackingNumber(ctx context.Context, id, trackingNumber string) error
}

// ShippingService talks to the carrier on behalf of orders.
type ShippingService interface {
	// CreateWaybill creates a carrier shipping document for an order and marks it shipped.
	CreateWaybill(ctx context.Context, orderID string) (*model.WaybillResult, error)

	// CheckDeliveryStatus asks the carrier about a parcel. When an order ID is
	// given and the parcel was delivered, that order is marked delivered.
	CheckDeliveryStatus(ctx context.Context, req *model.DeliveryStatusRequest) (*model.DeliveryStatus, error)
}

// PromoService previews promo codes for the cart.
type PromoService interface {
	Preview(ctx context.Context, req *model.PromoValidationRequest) (*model.PromoValidationResponse, error)
}

// Carrier is the subset of the carrier client used by the services.
type Carrier interface {
	CreateWaybill(ctx context.Context, apiKey string, params carrier.WaybillParams) (*carrier.Waybill, error)
	TrackDocument(ctx context.Context, apiKey, trackingNumber, phone string) (*carrier.TrackingStatus, error)
}
