package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshop/internal/events"
	"bookshop/internal/metrics"
	"bookshop/internal/model"
	"bookshop/internal/orderid"
	"bookshop/internal/pricing"
	"bookshop/internal/promo"
	"bookshop/internal/repository"
	"bookshop/internal/settings"

	"github.com/rs/zerolog"
)

// DefaultCreateAttempts bounds how many fresh IDs are tried when the order
// insert collides with an existing primary key.
const DefaultCreateAttempts = 3

// Partial write steps reported to metrics.
const (
	stepPromoUsage      = "promo_usage"
	stepOrderItems      = "order_items"
	stepStockAdjustment = "stock_adjustment"
	stepCheckoutCursor  = "checkout_cursor"
	stepEventPublish    = "event_publish"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	promoRepo      repository.PromoRepository
	stock          StockValidator
	evaluator      promo.Evaluator
	ids            orderid.Generator
	settings       settings.Provider
	publisher      events.Publisher
	metrics        *metrics.Shop
	createAttempts int
	now            func() time.Time
	logger         zerolog.Logger
}

// CheckoutOption configures the checkout service.
type CheckoutOption func(*checkoutService)

// WithPublisher publishes order.created events after checkout.
func WithPublisher(p events.Publisher) CheckoutOption {
	return func(s *checkoutService) {
		s.publisher = p
	}
}

// WithCheckoutMetrics records checkout outcomes.
func WithCheckoutMetrics(m *metrics.Shop) CheckoutOption {
	return func(s *checkoutService) {
		s.metrics = m
	}
}

// WithCreateAttempts overrides how many IDs are tried on primary key collisions.
func WithCreateAttempts(n int) CheckoutOption {
	return func(s *checkoutService) {
		if n > 0 {
			s.createAttempts = n
		}
	}
}

// WithCheckoutClock overrides the clock used for created_at.
func WithCheckoutClock(now func() time.Time) CheckoutOption {
	return func(s *checkoutService) {
		s.now = now
	}
}

// NewCheckoutService creates the order writer.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	promoRepo repository.PromoRepository,
	stock StockValidator,
	evaluator promo.Evaluator,
	ids orderid.Generator,
	settingsProvider settings.Provider,
	logger zerolog.Logger,
	opts ...CheckoutOption,
) CheckoutService {
	s := &checkoutService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		promoRepo:      promoRepo,
		stock:          stock,
		evaluator:      evaluator,
		ids:            ids,
		settings:       settingsProvider,
		publisher:      events.NopPublisher{},
		createAttempts: DefaultCreateAttempts,
		now:            time.Now,
		logger:         logger.With().Str("service", "checkout").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder runs the checkout sequence.
func (s *checkoutService) PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.CheckoutResult, error) {
	result, err := s.placeOrder(ctx, req)
	if err != nil {
		code := model.ErrCodeInternalError
		if de, ok := model.AsDomainError(err); ok {
			code = de.Code
		}
		s.metrics.IncCheckoutFailure(code)
		return nil, err
	}
	s.metrics.IncOrderCreated()
	return result, nil
}

func (s *checkoutService) placeOrder(ctx context.Context, req *model.OrderRequest) (*model.CheckoutResult, error) {
	if err := validateCustomer(req); err != nil {
		return nil, err
	}

	lines, err := MergeCartLines(req.Items)
	if err != nil {
		return nil, err
	}

	// Everything up to the order insert is read-only.
	if err := s.stock.Validate(ctx, lines); err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load settings")
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	priced := make([]pricing.Line, len(lines))
	for i, line := range lines {
		priced[i] = pricing.LineFromProduct(products[line.ProductID], line.Quantity)
	}

	totals := pricing.Calculate(priced, nil)
	if totals.TotalWithoutDiscount.GreaterThan(model.MaxOrderAmount) {
		return nil, model.ErrOrderAmountTooLarge
	}
	if snapshot.MinOrderAmount != nil && totals.Subtotal.LessThan(*snapshot.MinOrderAmount) {
		return nil, model.NewMinOrderAmountError(snapshot.MinOrderAmount.StringFixed(2))
	}

	var applied *model.PromoCode
	if req.PromoCode != nil && strings.TrimSpace(*req.PromoCode) != "" {
		applied, err = s.evaluator.Evaluate(ctx, *req.PromoCode, totals.Subtotal)
		if err != nil {
			return nil, err
		}
		totals = pricing.Calculate(priced, applied)
	}

	order := s.newOrder(req, totals, applied)
	if err := s.insertOrder(ctx, order); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("order_id", order.ID).Logger()

	if applied != nil {
		if err := s.promoRepo.IncrementUsage(ctx, applied.Code); err != nil {
			s.metrics.IncPartialWrite(stepPromoUsage)
			log.Error().Err(err).Str("promo_code", applied.Code).Msg("failed to increment promo usage")
		}
	}

	items := make([]model.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = model.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtTime: products[line.ProductID].Price,
		}
	}

	step := model.CheckoutStepOrderCreated
	if err := s.orderRepo.CreateItems(ctx, order.ID, items); err != nil {
		s.metrics.IncPartialWrite(stepOrderItems)
		log.Error().Err(err).Int("item_count", len(items)).Msg("failed to write order items")
	} else {
		step = s.adjustStock(ctx, order.ID, items, log)
	}

	s.publish(ctx, events.NewOrderEvent(events.OrderCreated, order), log)

	log.Info().
		Int("item_count", len(items)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order placed")

	return &model.CheckoutResult{
		OrderID:       order.ID,
		TotalAmount:   order.TotalAmount,
		PromoDiscount: totals.PromoDiscount,
		FreeDelivery:  snapshot.FreeDelivery(order.TotalAmount),
		CheckoutStep:  incompleteStep(step),
	}, nil
}

func validateCustomer(req *model.OrderRequest) error {
	if req == nil {
		return model.NewValidationError("Order request is required")
	}
	required := []struct {
		value string
		field string
	}{
		{req.CustomerName, "customerName"},
		{req.CustomerEmail, "customerEmail"},
		{req.CustomerPhone, "customerPhone"},
		{req.CustomerCity, "customerCity"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return model.NewValidationError(fmt.Sprintf("Field %s is required", r.field))
		}
	}
	return nil
}

func (s *checkoutService) loadProducts(ctx context.Context, lines []model.CartLine) (map[int64]*model.Product, error) {
	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to load cart products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[int64]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, model.ErrProductNotFound
		}
	}
	return byID, nil
}

func (s *checkoutService) newOrder(req *model.OrderRequest, totals pricing.Totals, applied *model.PromoCode) *model.Order {
	order := &model.Order{
		CustomerName:          strings.TrimSpace(req.CustomerName),
		CustomerEmail:         strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:         strings.TrimSpace(req.CustomerPhone),
		CustomerAddress:       strings.TrimSpace(req.CustomerAddress),
		CustomerCity:          strings.TrimSpace(req.CustomerCity),
		NovaPoshtaBranch:      req.NovaPoshtaBranch,
		NovaPoshtaWarehouseID: req.NovaPoshtaWarehouseID,
		InstagramNick:         req.InstagramNick,
		VisitedPsychologist:   req.VisitedPsychologist,
		TotalAmount:           totals.Total,
		Status:                model.OrderStatusPending,
		UserID:                req.UserID,
		CheckoutStep:          model.CheckoutStepOrderCreated,
		CreatedAt:             s.now().UTC(),
	}
	if applied != nil {
		code := applied.Code
		order.PromoCode = &code
	}
	return order
}

// insertOrder allocates an ID and writes the order row, drawing a new ID when
// the insert loses a race for the one it was given.
func (s *checkoutService) insertOrder(ctx context.Context, order *model.Order) error {
	for attempt := 1; attempt <= s.createAttempts; attempt++ {
		id, err := s.ids.Generate(ctx)
		if err != nil {
			if errors.Is(err, model.ErrOrderIDExhausted) {
				s.logger.Error().Msg("order ID space exhausted")
				return model.ErrOrderIDExhausted
			}
			s.logger.Error().Err(err).Msg("failed to allocate order ID")
			return model.ErrOrderCreationFailed
		}

		order.ID = id
		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.logger.Warn().Str("order_id", id).Int("attempt", attempt).Msg("order ID taken on insert, retrying")
			continue
		}

		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to insert order")
		return model.ErrOrderCreationFailed
	}

	s.logger.Error().Int("attempts", s.createAttempts).Msg("every allocated order ID collided on insert")
	return model.ErrOrderIDExhausted
}

// adjustStock decrements stock item by item and returns the step the order
// reached. A failed item is logged and skipped; the order stays at
// items_written so the sweep can finish it.
func (s *checkoutService) adjustStock(ctx context.Context, orderID string, items []model.OrderItem, log zerolog.Logger) model.CheckoutStep {
	failed := 0
	for _, item := range items {
		if _, err := s.orderRepo.AdjustItemStock(ctx, orderID, item.ProductID); err != nil {
			failed++
			s.metrics.IncPartialWrite(stepStockAdjustment)
			log.Error().Err(err).Int64("product_id", item.ProductID).Msg("failed to adjust stock")
		}
	}
	if failed > 0 {
		return model.CheckoutStepItemsWritten
	}

	if err := s.orderRepo.SetCheckoutStep(ctx, orderID, model.CheckoutStepCompleted); err != nil {
		s.metrics.IncPartialWrite(stepCheckoutCursor)
		log.Error().Err(err).Msg("failed to mark checkout completed")
		return model.CheckoutStepItemsWritten
	}
	return model.CheckoutStepCompleted
}

func incompleteStep(step model.CheckoutStep) model.CheckoutStep {
	if step == model.CheckoutStepCompleted {
		return ""
	}
	return step
}

func (s *checkoutService) publish(ctx context.Context, event events.Event, log zerolog.Logger) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncPartialWrite(stepEventPublish)
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish order event")
	}
}
