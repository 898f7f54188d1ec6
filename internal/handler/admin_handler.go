package handler

import (
	"net/http"
	"strings"

	"bookshop/internal/model"
	"bookshop/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler serves the back office: order listing, status changes and shipping.
type AdminHandler struct {
	orders   service.OrderService
	shipping service.ShippingService
	logger   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(orders service.OrderService, shipping service.ShippingService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		orders:   orders,
		shipping: shipping,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

// ListOrders handles GET /admin/orders?status=&limit=&offset= requests.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter model.OrderFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := model.OrderStatus(raw)
		filter.Status = &status
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, err, h.logger)
		return
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /admin/orders/{id} requests.
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
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

// UpdateStatus handles PATCH /admin/orders/{id}/status requests.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		writeError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.logger.Info().Str("order_id", id).Str("status", string(req.Status)).Msg("order status updated")
	w.WriteHeader(http.StatusNoContent)
}

// SetTracking handles PUT /admin/orders/{id}/tracking requests.
func (h *AdminHandler) SetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		writeError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	var req model.TrackingUpdateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.orders.SetTrackingNumber(r.Context(), id, req.TrackingNumber); err != nil {
		writeError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateWaybill handles POST /admin/orders/{id}/waybill requests.
func (h *AdminHandler) CreateWaybill(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		writeError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	result, err := h.shipping.CreateWaybill(r.Context(), id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// CheckDeliveryStatus handles POST /admin/shipping/status requests.
func (h *AdminHandler) CheckDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req model.DeliveryStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	status, err := h.shipping.CheckDeliveryStatus(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
