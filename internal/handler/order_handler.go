package handler

import (
	"net/http"
	"strings"

	"bookshop/internal/model"
	"bookshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles storefront order requests.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	result, err := h.checkout.PlaceOrder(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		writeError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// orderIDParam returns the {id} path parameter when it has the shape of an order number.
func orderIDParam(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if len(id) != 6 {
		return "", false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return id, true
}
