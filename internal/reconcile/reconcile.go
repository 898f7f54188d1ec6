// Package reconcile walks shipped orders and marks the ones the carrier reports as delivered.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"bookshop/internal/carrier"
	"bookshop/internal/events"
	"bookshop/internal/metrics"
	"bookshop/internal/model"
	"bookshop/internal/repository"
	"bookshop/internal/settings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Tracker looks up a parcel at the carrier.
type Tracker interface {
	TrackDocument(ctx context.Context, apiKey, trackingNumber, phone string) (*carrier.TrackingStatus, error)
}

// Lock guards against overlapping runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Reconciler checks every shipped order against the carrier, one call at a time.
type Reconciler struct {
	orders    repository.OrderRepository
	settings  settings.Provider
	tracker   Tracker
	limiter   *rate.Limiter
	lock      Lock
	publisher events.Publisher
	metrics   *metrics.Shop
	logger    zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLock makes runs exclusive.
func WithLock(l Lock) Option {
	return func(r *Reconciler) {
		r.lock = l
	}
}

// WithPublisher publishes order.delivered events.
func WithPublisher(p events.Publisher) Option {
	return func(r *Reconciler) {
		r.publisher = p
	}
}

// WithMetrics records per-order outcomes.
func WithMetrics(m *metrics.Shop) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// New creates a Reconciler that spaces carrier calls at least delay apart.
// A zero delay disables pacing.
func New(
	orders repository.OrderRepository,
	settingsProvider settings.Provider,
	tracker Tracker,
	delay time.Duration,
	logger zerolog.Logger,
	opts ...Option,
) *Reconciler {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	r := &Reconciler{
		orders:    orders,
		settings:  settingsProvider,
		tracker:   tracker,
		limiter:   rate.NewLimiter(limit, 1),
		publisher: events.NopPublisher{},
		logger:    logger.With().Str("component", "reconciler").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks all shipped orders. A failure for one order is recorded in the
// summary and never stops the batch. Cancelling ctx stops the remaining
// lookups and returns the partial summary with the context error.
func (r *Reconciler) Run(ctx context.Context) (*model.ReconcileSummary, error) {
	if r.lock != nil {
		locked, err := r.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire reconcile lock: %w", err)
		}
		if !locked {
			r.logger.Info().Msg("reconciliation already running")
			return nil, model.ErrReconcileInProgress
		}
		defer func() {
			if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Error().Err(err).Msg("failed to release reconcile lock")
			}
		}()
	}

	snapshot, err := r.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if snapshot.CarrierAPIKey == "" {
		r.logger.Error().Msg("carrier API key is not configured")
		return nil, model.ErrCarrierAPIKeyMissing
	}

	orders, err := r.orders.ListShipped(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipped orders: %w", err)
	}

	r.logger.Info().Int("orders", len(orders)).Msg("reconciliation started")
	start := time.Now()

	summary := &model.ReconcileSummary{Results: make([]model.ReconcileResult, 0, len(orders))}
	for i := range orders {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Warn().Err(err).Int("remaining", len(orders)-i).Msg("reconciliation interrupted")
			return summary, ctxErr(ctx, err)
		}

		result := r.check(ctx, snapshot.CarrierAPIKey, &orders[i])
		r.metrics.IncReconcileResult(string(result.Outcome))

		summary.Checked++
		if result.Outcome == model.ReconcileUpdated {
			summary.Updated++
		}
		summary.Results = append(summary.Results, result)
	}

	r.logger.Info().
		Int("checked", summary.Checked).
		Int("updated", summary.Updated).
		Dur("duration", time.Since(start)).
		Msg("reconciliation finished")

	return summary, nil
}

func (r *Reconciler) check(ctx context.Context, apiKey string, order *model.Order) model.ReconcileResult {
	trackingNumber := ""
	if order.TrackingNumber != nil {
		trackingNumber = *order.TrackingNumber
	}
	result := model.ReconcileResult{OrderID: order.ID, TrackingNumber: trackingNumber}
	log := r.logger.With().Str("order_id", order.ID).Str("tracking_number", trackingNumber).Logger()

	status, err := r.tracker.TrackDocument(ctx, apiKey, trackingNumber, order.CustomerPhone)
	if err != nil {
		log.Warn().Err(err).Msg("carrier lookup failed")
		result.Outcome = model.ReconcileLookupFailed
		result.Error = err.Error()
		return result
	}

	result.StatusCode = status.StatusCode
	result.Status = status.Status

	if !status.Delivered() {
		result.Outcome = model.ReconcileInTransit
		return result
	}

	updated, err := r.orders.MarkDelivered(ctx, order.ID, trackingNumber)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("failed to mark order delivered")
		result.Outcome = model.ReconcileUpdateFailed
		result.Error = err.Error()
	case !updated:
		log.Warn().Msg("order changed before it could be marked delivered")
		result.Outcome = model.ReconcileUpdateFailed
		result.Error = "order no longer matches tracking number"
	default:
		log.Info().Msg("order delivered")
		result.Outcome = model.ReconcileUpdated
		order.Status = model.OrderStatusDelivered
		if err := r.publisher.Publish(ctx, events.NewOrderEvent(events.OrderDelivered, order)); err != nil {
			log.Error().Err(err).Msg("failed to publish order event")
		}
	}
	return result
}

// ctxErr prefers the context's own error over the limiter's description of it.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
