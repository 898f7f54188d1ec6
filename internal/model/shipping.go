package model

import "time"

// WaybillResult is returned after a carrier shipping document has been created.
type WaybillResult struct {
	OrderID               string  `json:"orderId"`
	TrackingNumber        string  `json:"trackingNumber"`
	DocumentRef           string  `json:"documentRef,omitempty"`
	EstimatedDeliveryDate *string `json:"estimatedDeliveryDate,omitempty"`
}

// DeliveryStatusRequest asks the carrier for the state of a parcel.
type DeliveryStatusRequest struct {
	TrackingNumber string  `json:"trackingNumber" validate:"required,max=64"`
	OrderID        *string `json:"orderId,omitempty" validate:"omitempty,len=6,numeric"`
}

// DeliveryStatus is the carrier's view of a parcel mapped onto local terms.
type DeliveryStatus struct {
	TrackingNumber     string    `json:"trackingNumber"`
	StatusCode         string    `json:"statusCode"`
	Status             string    `json:"status"`
	IsDelivered        bool      `json:"isDelivered"`
	OrderUpdated       bool      `json:"orderUpdated"`
	ActualDeliveryDate *string   `json:"actualDeliveryDate,omitempty"`
	RecipientDateTime  *string   `json:"recipientDateTime,omitempty"`
	CheckedAt          time.Time `json:"checkedAt"`
}

// ReconcileOutcome classifies what happened to one shipped order during reconciliation.
type ReconcileOutcome string

const (
	ReconcileUpdated      ReconcileOutcome = "updated"
	ReconcileInTransit    ReconcileOutcome = "in_transit"
	ReconcileLookupFailed ReconcileOutcome = "lookup_failed"
	ReconcileUpdateFailed ReconcileOutcome = "update_failed"
)

// ReconcileResult is the per-order detail of a reconciliation run.
type ReconcileResult struct {
	OrderID        string           `json:"orderId"`
	TrackingNumber string           `json:"trackingNumber"`
	Outcome        ReconcileOutcome `json:"outcome"`
	StatusCode     string           `json:"statusCode,omitempty"`
	Status         string           `json:"status,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// ReconcileSummary aggregates a reconciliation run.
type ReconcileSummary struct {
	Checked int               `json:"checked"`
	Updated int               `json:"updated"`
	Results []ReconcileResult `json:"results"`
}
