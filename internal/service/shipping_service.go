package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshop/internal/carrier"
	"bookshop/internal/events"
	"bookshop/internal/model"
	"bookshop/internal/repository"
	"bookshop/internal/settings"

	"github.com/rs/zerolog"
)

const parcelDescription = "Books"

// shippingService implements ShippingService.
type shippingService struct {
	orderRepo     repository.OrderRepository
	settings      settings.Provider
	carrier       Carrier
	publisher     events.Publisher
	weightPerItem float64
	now           func() time.Time
	logger        zerolog.Logger
}

// NewShippingService creates the shipping service. weightPerItem is the
// parcel weight in kilograms counted for every book in the order.
func NewShippingService(
	orderRepo repository.OrderRepository,
	settingsProvider settings.Provider,
	c Carrier,
	publisher events.Publisher,
	weightPerItem float64,
	logger zerolog.Logger,
) ShippingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &shippingService{
		orderRepo:     orderRepo,
		settings:      settingsProvider,
		carrier:       c,
		publisher:     publisher,
		weightPerItem: weightPerItem,
		now:           time.Now,
		logger:        logger.With().Str("service", "shipping").Logger(),
	}
}

// ParcelWeight is the declared weight for an order: a fixed weight per book,
// never less than one book's worth.
func ParcelWeight(items []model.OrderItem, weightPerItem float64) float64 {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	if count < 1 {
		count = 1
	}
	return float64(count) * weightPerItem
}

// CreateWaybill creates a carrier shipping document for an order.
func (s *shippingService) CreateWaybill(ctx context.Context, orderID string) (*model.WaybillResult, error) {
	log := s.logger.With().Str("order_id", orderID).Logger()

	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	snapshot, err := s.settings.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings")
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if snapshot.CarrierAPIKey == "" {
		log.Error().Msg("carrier API key is not configured")
		return nil, model.ErrCarrierAPIKeyMissing
	}
	if !snapshot.Sender.Complete() {
		log.Error().Msg("carrier sender settings are incomplete")
		return nil, model.ErrSenderConfigMissing
	}
	if order.NovaPoshtaWarehouseID == nil || strings.TrimSpace(*order.NovaPoshtaWarehouseID) == "" {
		return nil, model.ErrRecipientDataMissing
	}
	if order.Status == model.OrderStatusCancelled || order.Status == model.OrderStatusDelivered {
		return nil, model.ErrOrderNotShippable
	}

	params := carrier.WaybillParams{
		SenderRef:             snapshot.Sender.Ref,
		SenderCityRef:         snapshot.Sender.CityRef,
		SenderWarehouseRef:    snapshot.Sender.WarehouseRef,
		SenderContactRef:      snapshot.Sender.ContactRef,
		SenderPhone:           snapshot.Sender.Phone,
		RecipientName:         order.CustomerName,
		RecipientPhone:        order.CustomerPhone,
		RecipientCityName:     order.CustomerCity,
		RecipientWarehouseRef: strings.TrimSpace(*order.NovaPoshtaWarehouseID),
		Weight:                ParcelWeight(items, s.weightPerItem),
		Cost:                  order.TotalAmount,
		Description:           parcelDescription,
	}

	waybill, err := s.carrier.CreateWaybill(ctx, snapshot.CarrierAPIKey, params)
	if err != nil {
		log.Error().Err(err).Msg("carrier failed to create waybill")
		return nil, carrierError("Nova Poshta could not create the waybill", err)
	}

	updated, err := s.orderRepo.MarkShipped(ctx, order.ID, waybill.TrackingNumber)
	if err != nil {
		log.Error().Err(err).Str("tracking_number", waybill.TrackingNumber).Msg("waybill created but order update failed")
		return nil, fmt.Errorf("failed to mark order shipped: %w", err)
	}
	if !updated {
		log.Error().Str("tracking_number", waybill.TrackingNumber).Msg("waybill created for an order that was cancelled or delivered meanwhile")
		return nil, model.ErrOrderNotShippable
	}

	log.Info().Str("tracking_number", waybill.TrackingNumber).Msg("waybill created")

	order.Status = model.OrderStatusShipped
	order.TrackingNumber = &waybill.TrackingNumber
	s.publish(ctx, events.NewOrderEvent(events.OrderShipped, order))

	result := &model.WaybillResult{
		OrderID:        order.ID,
		TrackingNumber: waybill.TrackingNumber,
		DocumentRef:    waybill.Ref,
	}
	if waybill.EstimatedDeliveryDate != "" {
		result.EstimatedDeliveryDate = &waybill.EstimatedDeliveryDate
	}
	return result, nil
}

// CheckDeliveryStatus asks the carrier about a parcel and records delivery.
func (s *shippingService) CheckDeliveryStatus(ctx context.Context, req *model.DeliveryStatusRequest) (*model.DeliveryStatus, error) {
	trackingNumber := strings.TrimSpace(req.TrackingNumber)
	if trackingNumber == "" {
		return nil, model.NewValidationError("Tracking number is required")
	}
	log := s.logger.With().Str("tracking_number", trackingNumber).Logger()

	snapshot, err := s.settings.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings")
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if snapshot.CarrierAPIKey == "" {
		log.Error().Msg("carrier API key is not configured")
		return nil, model.ErrCarrierAPIKeyMissing
	}

	var order *model.Order
	phone := ""
	if req.OrderID != nil && *req.OrderID != "" {
		order, _, err = s.orderRepo.GetByID(ctx, *req.OrderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", *req.OrderID).Msg("failed to get order")
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if order == nil {
			return nil, model.ErrOrderNotFound
		}
		phone = order.CustomerPhone
	}

	tracking, err := s.carrier.TrackDocument(ctx, snapshot.CarrierAPIKey, trackingNumber, phone)
	if err != nil {
		log.Error().Err(err).Msg("carrier status lookup failed")
		return nil, carrierError("Nova Poshta status lookup failed", err)
	}

	status := &model.DeliveryStatus{
		TrackingNumber: trackingNumber,
		StatusCode:     tracking.StatusCode,
		Status:         tracking.Status,
		IsDelivered:    tracking.Delivered(),
		CheckedAt:      s.now().UTC(),
	}
	if tracking.ActualDeliveryDate != "" {
		status.ActualDeliveryDate = &tracking.ActualDeliveryDate
	}
	if tracking.RecipientDateTime != "" {
		status.RecipientDateTime = &tracking.RecipientDateTime
	}

	if status.IsDelivered && order != nil && order.Status != model.OrderStatusDelivered {
		updated, err := s.orderRepo.MarkDelivered(ctx, order.ID, trackingNumber)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.ID).Msg("failed to mark order delivered")
			return nil, fmt.Errorf("failed to mark order delivered: %w", err)
		}
		status.OrderUpdated = updated
		if updated {
			log.Info().Str("order_id", order.ID).Msg("order delivered")
			order.Status = model.OrderStatusDelivered
			s.publish(ctx, events.NewOrderEvent(events.OrderDelivered, order))
		} else {
			log.Warn().Str("order_id", order.ID).Msg("delivered parcel does not match the order's tracking number")
		}
	}

	return status, nil
}

// carrierError surfaces the carrier's own error list when it rejected the call.
func carrierError(message string, err error) error {
	var apiErr *carrier.APIError
	if errors.As(err, &apiErr) {
		return model.NewCarrierError(message, apiErr.Errors)
	}
	return model.NewCarrierError(message, nil)
}

func (s *shippingService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", event.OrderID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish order event")
	}
}
