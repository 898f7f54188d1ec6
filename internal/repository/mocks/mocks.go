// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"bookshop/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repository.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetStockLevels(ctx context.Context, ids []int64) ([]model.StockLevel, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockLevel), args.Error(1)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, orderID string, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *MockOrderRepository) AdjustItemStock(ctx context.Context, orderID string, productID int64) (bool, error) {
	args := m.Called(ctx, orderID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetCheckoutStep(ctx context.Context, orderID string, step model.CheckoutStep) error {
	args := m.Called(ctx, orderID, step)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	items, _ := args.Get(1).([]model.OrderItem)
	return args.Get(0).(*model.Order), items, args.Error(2)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListShipped(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListIncompleteCheckouts(ctx context.Context, before time.Time) ([]model.Order, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (bool, error) {
	args := m.Called(ctx, id, trackingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkShipped(ctx context.Context, id, trackingNumber string) (bool, error) {
	args := m.Called(ctx, id, trackingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkDelivered(ctx context.Context, id, trackingNumber string) (bool, error) {
	args := m.Called(ctx, id, trackingNumber)
	return args.Bool(0), args.Error(1)
}

// MockPromoRepository is a mock implementation of repository.PromoRepository.
type MockPromoRepository struct {
	mock.Mock
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromoCode), args.Error(1)
}

func (m *MockPromoRepository) IncrementUsage(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockPromoRepository) Upsert(ctx context.Context, codes []model.PromoCode) (int, error) {
	args := m.Called(ctx, codes)
	return args.Int(0), args.Error(1)
}

// MockSettingsRepository is a mock implementation of repository.SettingsRepository.
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}
