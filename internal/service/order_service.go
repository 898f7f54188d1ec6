package service

import (
	"context"
	"fmt"
	"strings"

	"bookshop/internal/events"
	"bookshop/internal/model"
	"bookshop/internal/repository"
	"bookshop/internal/settings"

	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	settings  settings.Provider
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewOrderService creates a new order service. A nil publisher disables events.
func NewOrderService(
	orderRepo repository.OrderRepository,
	settingsProvider settings.Provider,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &orderService{
		orderRepo: orderRepo,
		settings:  settingsProvider,
		publisher: publisher,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order by its ID with all items.
func (s *orderService) GetByID(ctx context.Context, id string) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	snapshot, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to load settings")
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if items == nil {
		items = []model.OrderItem{}
	}

	return &model.OrderResponse{
		Order:        *order,
		Items:        items,
		FreeDelivery: snapshot.FreeDelivery(order.TotalAmount),
	}, nil
}

// List retrieves orders for the back office.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, model.ErrInvalidStatus
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to a new status if the lifecycle allows it.
func (s *orderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !status.IsValid() {
		return model.ErrInvalidStatus
	}

	order, _, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(status) {
		s.logger.Info().
			Str("order_id", id).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("rejected status transition")
		return model.ErrInvalidStatusTransition
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, order.Status, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !updated {
		// The status changed between the read and the write.
		return model.ErrInvalidStatusTransition
	}

	s.logger.Info().
		Str("order_id", id).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("order status updated")

	order.Status = status
	switch status {
	case model.OrderStatusShipped:
		s.publish(ctx, events.NewOrderEvent(events.OrderShipped, order))
	case model.OrderStatusDelivered:
		s.publish(ctx, events.NewOrderEvent(events.OrderDelivered, order))
	}
	return nil
}

// SetTrackingNumber records a tracking number entered by hand.
func (s *orderService) SetTrackingNumber(ctx context.Context, id, trackingNumber string) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return model.NewValidationError("Tracking number is required")
	}

	updated, err := s.orderRepo.SetTrackingNumber(ctx, id, trackingNumber)
	if err != nil {
		return fmt.Errorf("failed to set tracking number: %w", err)
	}
	if !updated {
		return model.ErrOrderNotFound
	}

	s.logger.Info().Str("order_id", id).Str("tracking_number", trackingNumber).Msg("tracking number set")
	return nil
}

func (s *orderService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", event.OrderID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish order event")
	}
}
