package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshop/internal/model"
	"bookshop/internal/repository"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// CheckoutSweepJobName identifies the checkout sweep job.
const CheckoutSweepJobName = "checkout-sweep"

const defaultSweepAge = 10 * time.Minute

// CheckoutSweepParams configure the checkout sweep.
type CheckoutSweepParams struct {
	Orders repository.OrderRepository
	// MinAge keeps the sweep away from checkouts that may still be in flight.
	MinAge time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

// checkoutSweepJob finishes checkouts whose items were written but whose
// stock adjustment did not complete.
type checkoutSweepJob struct {
	orders repository.OrderRepository
	minAge time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCheckoutSweepJob builds the checkout sweep job.
func NewCheckoutSweepJob(params CheckoutSweepParams) (Job, error) {
	if params.Orders == nil {
		return nil, errors.New("order repository required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = defaultSweepAge
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &checkoutSweepJob{
		orders: params.Orders,
		minAge: minAge,
		now:    now,
		logger: params.Logger.With().Str("job", CheckoutSweepJobName).Logger(),
	}, nil
}

func (j *checkoutSweepJob) Name() string { return CheckoutSweepJobName }

// Run re-applies stock adjustment to every stuck checkout. Adjustment is
// idempotent per item, so items that were already adjusted are left alone.
func (j *checkoutSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.minAge)
	stuck, err := j.orders.ListIncompleteCheckouts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list incomplete checkouts: %w", err)
	}
	if len(stuck) == 0 {
		return nil
	}

	var errs error
	completed := 0
	for _, order := range stuck {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := j.finish(ctx, order.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		completed++
	}

	j.logger.Info().
		Int("stuck", len(stuck)).
		Int("completed", completed).
		Msg("checkout sweep done")
	return errs
}

func (j *checkoutSweepJob) finish(ctx context.Context, orderID string) error {
	_, items, err := j.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	var errs error
	for _, item := range items {
		if item.StockAdjusted {
			continue
		}
		applied, err := j.orders.AdjustItemStock(ctx, orderID, item.ProductID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("adjust stock for product %d: %w", item.ProductID, err))
			continue
		}
		if applied {
			j.logger.Info().Str("order_id", orderID).Int64("product_id", item.ProductID).Msg("stock adjusted by sweep")
		}
	}
	if errs != nil {
		return errs
	}

	if err := j.orders.SetCheckoutStep(ctx, orderID, model.CheckoutStepCompleted); err != nil {
		return fmt.Errorf("mark checkout completed: %w", err)
	}
	return nil
}
