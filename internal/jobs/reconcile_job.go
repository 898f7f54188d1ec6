package jobs

import (
	"context"
	"errors"

	"bookshop/internal/model"
	"bookshop/internal/reconcile"

	"github.com/rs/zerolog"
)

// DeliveryReconcileJobName identifies the delivery reconciliation job.
const DeliveryReconcileJobName = "delivery-reconcile"

type deliveryReconciler interface {
	Run(ctx context.Context) (*model.ReconcileSummary, error)
}

type deliveryReconcileJob struct {
	reconciler deliveryReconciler
	logger     zerolog.Logger
}

// NewDeliveryReconcileJob wraps the reconciler as a scheduled job.
func NewDeliveryReconcileJob(r *reconcile.Reconciler, logger zerolog.Logger) Job {
	return newDeliveryReconcileJob(r, logger)
}

func newDeliveryReconcileJob(r deliveryReconciler, logger zerolog.Logger) *deliveryReconcileJob {
	return &deliveryReconcileJob{
		reconciler: r,
		logger:     logger.With().Str("job", DeliveryReconcileJobName).Logger(),
	}
}

func (j *deliveryReconcileJob) Name() string { return DeliveryReconcileJobName }

// Run reconciles shipped orders. A run already in progress elsewhere, such as
// one triggered over HTTP, is not a failure.
func (j *deliveryReconcileJob) Run(ctx context.Context) error {
	summary, err := j.reconciler.Run(ctx)
	if errors.Is(err, model.ErrReconcileInProgress) {
		j.logger.Info().Msg("reconciliation already in progress, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.Info().
		Int("checked", summary.Checked).
		Int("updated", summary.Updated).
		Msg("delivery reconciliation done")
	return nil
}
