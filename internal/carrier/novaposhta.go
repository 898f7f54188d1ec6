// Package carrier is a client for the Nova Poshta JSON API.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookshop/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	methodSaveDocument      = "save"
	methodGetStatusDocument = "getStatusDocuments"

	maxResponseBytes = 1 << 20
	dateLayout       = "02.01.2006"
)

// Status codes the carrier reports once a parcel has reached the recipient.
var deliveredCodes = map[string]struct{}{
	"9":   {},
	"10":  {},
	"11":  {},
	"106": {},
}

// IsDelivered reports whether a tracking status code means the parcel was delivered.
func IsDelivered(statusCode string) bool {
	_, ok := deliveredCodes[strings.TrimSpace(statusCode)]
	return ok
}

// NormalizePhone strips formatting and converts a local 0XXXXXXXXX number to
// the 380XXXXXXXXX form the carrier expects.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 && digits[0] == '0' {
		return "38" + digits
	}
	return digits
}

// APIError is returned when the carrier answers with success=false.
type APIError struct {
	Method string
	Errors []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("nova poshta %s failed", e.Method)
	}
	return fmt.Sprintf("nova poshta %s failed: %s", e.Method, strings.Join(e.Errors, "; "))
}

// Client calls the carrier's single JSON endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Shop
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records call outcomes.
func WithMetrics(m *metrics.Shop) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the clock used for the shipment date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a carrier client. Every call is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     logger.With().Str("component", "nova-poshta").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiRequest struct {
	APIKey           string `json:"apiKey"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

type apiResponse[T any] struct {
	Success  bool     `json:"success"`
	Data     []T      `json:"data"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func call[T any](ctx context.Context, c *Client, apiKey, modelName, method string, props any) (*T, error) {
	body, err := json.Marshal(apiRequest{
		APIKey:           apiKey,
		ModelName:        modelName,
		CalledMethod:     method,
		MethodProperties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncCarrierCall(method, false)
		c.logger.Error().Err(err).Str("method", method).Msg("carrier request failed")
		return nil, fmt.Errorf("failed to call nova poshta %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.IncCarrierCall(method, false)
		return nil, fmt.Errorf("failed to read nova poshta %s response: %w", method, err)
	}

	c.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("carrier responded")

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncCarrierCall(method, false)
		return nil, fmt.Errorf("nova poshta %s returned HTTP %d", method, resp.StatusCode)
	}

	var parsed apiResponse[T]
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.metrics.IncCarrierCall(method, false)
		return nil, fmt.Errorf("failed to decode nova poshta %s response: %w", method, err)
	}

	if !parsed.Success {
		c.metrics.IncCarrierCall(method, false)
		c.logger.Warn().Strs("errors", parsed.Errors).Str("method", method).Msg("carrier rejected request")
		return nil, &APIError{Method: method, Errors: parsed.Errors}
	}
	if len(parsed.Data) == 0 {
		c.metrics.IncCarrierCall(method, false)
		return nil, &APIError{Method: method, Errors: []string{"empty response data"}}
	}

	c.metrics.IncCarrierCall(method, true)
	return &parsed.Data[0], nil
}

// WaybillParams describes a warehouse-to-warehouse parcel paid by the recipient in cash.
type WaybillParams struct {
	SenderRef          string
	SenderCityRef      string
	SenderWarehouseRef string
	SenderContactRef   string
	SenderPhone        string

	RecipientName         string
	RecipientPhone        string
	RecipientCityName     string
	RecipientWarehouseRef string

	Weight      float64
	Cost        decimal.Decimal
	Description string
}

// Waybill is the carrier's record of a created shipping document.
type Waybill struct {
	Ref                   string
	TrackingNumber        string
	EstimatedDeliveryDate string
}

type waybillData struct {
	Ref                   string     `json:"Ref"`
	IntDocNumber          flexString `json:"IntDocNumber"`
	EstimatedDeliveryDate string     `json:"EstimatedDeliveryDate"`
}

// CreateWaybill creates an internet document and returns its tracking number.
func (c *Client) CreateWaybill(ctx context.Context, apiKey string, p WaybillParams) (*Waybill, error) {
	props := map[string]string{
		"PayerType":         "Recipient",
		"PaymentMethod":     "Cash",
		"DateTime":          c.now().Format(dateLayout),
		"CargoType":         "Parcel",
		"Weight":            strconv.FormatFloat(p.Weight, 'f', -1, 64),
		"ServiceType":       "WarehouseWarehouse",
		"SeatsAmount":       "1",
		"Description":       p.Description,
		"Cost":              p.Cost.StringFixed(2),
		"CitySender":        p.SenderCityRef,
		"Sender":            p.SenderRef,
		"SenderAddress":     p.SenderWarehouseRef,
		"ContactSender":     p.SenderContactRef,
		"SendersPhone":      NormalizePhone(p.SenderPhone),
		"RecipientCityName": p.RecipientCityName,
		"RecipientAddress":  p.RecipientWarehouseRef,
		"RecipientName":     p.RecipientName,
		"RecipientsPhone":   NormalizePhone(p.RecipientPhone),
		"RecipientType":     "PrivatePerson",
		"NewAddress":        "1",
	}

	data, err := call[waybillData](ctx, c, apiKey, "InternetDocument", methodSaveDocument, props)
	if err != nil {
		return nil, err
	}
	if data.IntDocNumber == "" {
		return nil, &APIError{Method: methodSaveDocument, Errors: []string{"response has no tracking number"}}
	}

	return &Waybill{
		Ref:                   data.Ref,
		TrackingNumber:        string(data.IntDocNumber),
		EstimatedDeliveryDate: data.EstimatedDeliveryDate,
	}, nil
}

// TrackingStatus is the carrier's current view of a parcel.
type TrackingStatus struct {
	Number             string
	StatusCode         string
	Status             string
	ActualDeliveryDate string
	RecipientDateTime  string
}

// Delivered reports whether the status code means the parcel was delivered.
func (s *TrackingStatus) Delivered() bool {
	return IsDelivered(s.StatusCode)
}

type trackingData struct {
	Number             flexString `json:"Number"`
	StatusCode         flexString `json:"StatusCode"`
	Status             string     `json:"Status"`
	ActualDeliveryDate string     `json:"ActualDeliveryDate"`
	RecipientDateTime  string     `json:"RecipientDateTime"`
}

type trackingDocument struct {
	DocumentNumber string `json:"DocumentNumber"`
	Phone          string `json:"Phone"`
}

// TrackDocument fetches the status of one parcel. phone may be empty; when set
// the carrier returns full recipient details.
func (c *Client) TrackDocument(ctx context.Context, apiKey, trackingNumber, phone string) (*TrackingStatus, error) {
	props := map[string][]trackingDocument{
		"Documents": {{DocumentNumber: trackingNumber, Phone: NormalizePhone(phone)}},
	}

	data, err := call[trackingData](ctx, c, apiKey, "TrackingDocument", methodGetStatusDocument, props)
	if err != nil {
		return nil, err
	}

	number := string(data.Number)
	if number == "" {
		number = trackingNumber
	}

	return &TrackingStatus{
		Number:             number,
		StatusCode:         string(data.StatusCode),
		Status:             data.Status,
		ActualDeliveryDate: data.ActualDeliveryDate,
		RecipientDateTime:  data.RecipientDateTime,
	}, nil
}
