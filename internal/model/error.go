package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorKind groups domain errors by who can correct them and how they surface over HTTP.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION_ERROR"
	KindBusinessRule        ErrorKind = "BUSINESS_RULE_VIOLATION"
	KindConfiguration       ErrorKind = "CONFIGURATION_ERROR"
	KindExternalService     ErrorKind = "EXTERNAL_SERVICE_ERROR"
	KindAllocationExhausted ErrorKind = "ALLOCATION_EXHAUSTED"
	KindPartialWrite        ErrorKind = "PARTIAL_WRITE_INCONSISTENCY"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConflict            ErrorKind = "CONFLICT"
	KindUnauthorised        ErrorKind = "UNAUTHORIZED"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeQuantityTooLarge        = "QUANTITY_TOO_LARGE"
	ErrCodeOrderAmountTooLarge     = "ORDER_AMOUNT_TOO_LARGE"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeMinOrderAmount          = "MIN_ORDER_AMOUNT_NOT_MET"
	ErrCodePromoNotFound           = "PROMO_NOT_FOUND"
	ErrCodePromoInactive           = "PROMO_INACTIVE"
	ErrCodePromoExpired            = "PROMO_EXPIRED"
	ErrCodePromoUsageLimit         = "PROMO_USAGE_LIMIT_REACHED"
	ErrCodePromoMinOrder           = "PROMO_MIN_ORDER_NOT_MET"
	ErrCodeOrderIDExhausted        = "ORDER_ID_EXHAUSTED"
	ErrCodeOrderCreationFailed     = "ORDER_CREATION_FAILED"
	ErrCodeCarrierAPIKeyMissing    = "CARRIER_API_KEY_MISSING"
	ErrCodeSenderConfigMissing     = "SENDER_CONFIG_MISSING"
	ErrCodeRecipientDataMissing    = "RECIPIENT_DATA_MISSING"
	ErrCodeCarrierError            = "CARRIER_ERROR"
	ErrCodeInvalidStatus           = "INVALID_STATUS"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeOrderNotShippable       = "ORDER_NOT_SHIPPABLE"
	ErrCodeReconcileInProgress     = "RECONCILE_IN_PROGRESS"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is an error that can be shown to the caller.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// HTTPStatus maps the error kind (and a few codes) onto a response status.
func (e *DomainError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindBusinessRule:
		if e.Code == ErrCodeInsufficientStock {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorised:
		return http.StatusUnauthorized
	case KindExternalService:
		return http.StatusBadGateway
	case KindAllocationExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails returns a copy of the error carrying details.
func (e *DomainError) WithDetails(details any) *DomainError {
	clone := *e
	clone.Details = details
	return &clone
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// AsDomainError extracts a DomainError from err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrInvalidQuantity         = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrQuantityTooLarge        = NewDomainError(KindValidation, ErrCodeQuantityTooLarge, "Quantity per product must not exceed 1000")
	ErrOrderAmountTooLarge     = NewDomainError(KindValidation, ErrCodeOrderAmountTooLarge, "Order total exceeds the maximum allowed amount")
	ErrProductNotFound         = NewDomainError(KindNotFound, ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound           = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrPromoNotFound           = NewDomainError(KindBusinessRule, ErrCodePromoNotFound, "Promo code not found")
	ErrPromoInactive           = NewDomainError(KindBusinessRule, ErrCodePromoInactive, "Promo code is not active")
	ErrPromoExpired            = NewDomainError(KindBusinessRule, ErrCodePromoExpired, "Promo code has expired")
	ErrPromoUsageLimit         = NewDomainError(KindBusinessRule, ErrCodePromoUsageLimit, "Promo code usage limit has been reached")
	ErrOrderIDExhausted        = NewDomainError(KindAllocationExhausted, ErrCodeOrderIDExhausted, "Could not allocate a unique order number, please try again")
	ErrOrderCreationFailed     = NewDomainError(KindInternal, ErrCodeOrderCreationFailed, "Failed to create order")
	ErrCarrierAPIKeyMissing    = NewDomainError(KindConfiguration, ErrCodeCarrierAPIKeyMissing, "Nova Poshta API key is not configured")
	ErrSenderConfigMissing     = NewDomainError(KindConfiguration, ErrCodeSenderConfigMissing, "Nova Poshta sender settings are not configured")
	ErrRecipientDataMissing    = NewDomainError(KindValidation, ErrCodeRecipientDataMissing, "Order is missing the recipient Nova Poshta warehouse")
	ErrInvalidStatus           = NewDomainError(KindValidation, ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidStatusTransition = NewDomainError(KindConflict, ErrCodeInvalidStatusTransition, "Order status transition is not allowed")
	ErrOrderNotShippable       = NewDomainError(KindConflict, ErrCodeOrderNotShippable, "Cancelled or delivered orders cannot be shipped")
	ErrReconcileInProgress     = NewDomainError(KindConflict, ErrCodeReconcileInProgress, "Delivery reconciliation is already running")
)

// InsufficientStock carries the offending line of a rejected checkout.
type InsufficientStock struct {
	ProductID int64  `json:"productId"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// NewInsufficientStockError reports a cart line requesting more than is in stock.
func NewInsufficientStockError(detail InsufficientStock) *DomainError {
	msg := fmt.Sprintf("Only %d of %q left in stock, %d requested", detail.Available, detail.Title, detail.Requested)
	return NewDomainError(KindBusinessRule, ErrCodeInsufficientStock, msg).WithDetails(detail)
}

// NewPromoMinOrderError reports a subtotal below the promo code's minimum.
func NewPromoMinOrderError(minimum string) *DomainError {
	return NewDomainError(KindBusinessRule, ErrCodePromoMinOrder,
		fmt.Sprintf("Minimum order amount for this promo code is %s", minimum))
}

// NewMinOrderAmountError reports a cart below the shop-wide minimum.
func NewMinOrderAmountError(minimum string) *DomainError {
	return NewDomainError(KindBusinessRule, ErrCodeMinOrderAmount,
		fmt.Sprintf("Minimum order amount is %s", minimum))
}

// NewValidationError reports bad or missing input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(KindValidation, ErrCodeValidationFailed, message)
}

// NewCarrierError surfaces the carrier's own error list.
func NewCarrierError(message string, carrierErrors []string) *DomainError {
	err := NewDomainError(KindExternalService, ErrCodeCarrierError, message)
	if len(carrierErrors) > 0 {
		return err.WithDetails(map[string]any{"carrierErrors": carrierErrors})
	}
	return err
}
