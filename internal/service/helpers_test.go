package service

import (
	"context"
	"sync"

	"bookshop/internal/carrier"
	"bookshop/internal/events"
	"bookshop/internal/model"
	"bookshop/internal/settings"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// staticSettings is a settings.Provider returning a fixed snapshot.
type staticSettings struct {
	snapshot *settings.Snapshot
	err      error
}

func (s *staticSettings) Load(ctx context.Context) (*settings.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func configuredSettings() *staticSettings {
	return &staticSettings{snapshot: &settings.Snapshot{
		CarrierAPIKey: "np-key",
		Sender: settings.Sender{
			Ref:          "sender-ref",
			CityRef:      "city-ref",
			WarehouseRef: "wh-ref",
			ContactRef:   "contact-ref",
			Phone:        "0501112233",
		},
	}}
}

// MockEvaluator is a mock implementation of promo.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*model.PromoCode, error) {
	args := m.Called(ctx, code, subtotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromoCode), args.Error(1)
}

// MockGenerator is a mock implementation of orderid.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockStockValidator is a mock implementation of StockValidator.
type MockStockValidator struct {
	mock.Mock
}

func (m *MockStockValidator) Validate(ctx context.Context, lines []model.CartLine) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

// MockCarrier is a mock implementation of Carrier.
type MockCarrier struct {
	mock.Mock
}

func (m *MockCarrier) CreateWaybill(ctx context.Context, apiKey string, params carrier.WaybillParams) (*carrier.Waybill, error) {
	args := m.Called(ctx, apiKey, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*carrier.Waybill), args.Error(1)
}

func (m *MockCarrier) TrackDocument(ctx context.Context, apiKey, trackingNumber, phone string) (*carrier.TrackingStatus, error) {
	args := m.Called(ctx, apiKey, trackingNumber, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*carrier.TrackingStatus), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
