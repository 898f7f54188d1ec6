package handler

import (
	"context"
	"net/http"

	"bookshop/internal/model"

	"github.com/rs/zerolog"
)

// Reconciler runs one delivery reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context) (*model.ReconcileSummary, error)
}

// CronHandler serves endpoints triggered by an external scheduler.
type CronHandler struct {
	reconciler Reconciler
	logger     zerolog.Logger
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(reconciler Reconciler, logger zerolog.Logger) *CronHandler {
	return &CronHandler{
		reconciler: reconciler,
		logger:     logger.With().Str("handler", "cron").Logger(),
	}
}

// ReconcileDeliveries handles POST /api/cron/reconcile-deliveries requests.
func (h *CronHandler) ReconcileDeliveries(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reconciler.Run(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.logger.Info().
		Int("checked", summary.Checked).
		Int("updated", summary.Updated).
		Msg("delivery reconciliation finished")

	writeJSON(w, http.StatusOK, summary)
}
