package handler

import (
	"net/http"

	"bookshop/internal/model"
	"bookshop/internal/service"

	"github.com/rs/zerolog"
)

// PromoHandler lets the cart preview a promo code.
type PromoHandler struct {
	service service.PromoService
	logger  zerolog.Logger
}

// NewPromoHandler creates a new promo handler.
func NewPromoHandler(service service.PromoService, logger zerolog.Logger) *PromoHandler {
	return &PromoHandler{
		service: service,
		logger:  logger.With().Str("handler", "promo").Logger(),
	}
}

// Validate handles POST /api/promo/validate requests.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.PromoValidationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	resp, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
