package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lixing-Zhang/catering-orders/internal/middleware"
	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/Lixing-Zhang/catering-orders/internal/service"
	"github.com/go-chi/chi/v5"
)

// ChargePaymentHeader lets operators disable charging on create and refunding on execute
const ChargePaymentHeader = "X-Charge-Payment"

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// chargePayment reads ChargePaymentHeader; anything other than a parseable false means true
func chargePayment(r *http.Request) bool {
	value := strings.TrimSpace(r.Header.Get(ChargePaymentHeader))
	if value == "" {
		return true
	}
	enabled, err := strconv.ParseBool(value)
	return err != nil || enabled
}

// CreateOrder handles POST /users/{userId}/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest

	// Parse request body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	userID := chi.URLParam(r, "userId")
	order, err := h.orderService.Create(r.Context(), middleware.ActorFrom(r.Context()), userID, req, chargePayment(r))
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}

// ListOrders handles GET /users/{userId}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context(), middleware.ActorFrom(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

// GetOrder handles GET /users/{userId}/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Get(r.Context(), middleware.ActorFrom(r.Context()), chi.URLParam(r, "userId"), chi.URLParam(r, "orderId"))
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// UpdateOrder handles PUT /users/{userId}/orders/{orderId}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("failed to decode update request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	order, err := h.orderService.Update(r.Context(), middleware.ActorFrom(r.Context()), chi.URLParam(r, "userId"), chi.URLParam(r, "orderId"), req)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// DeleteOrder handles DELETE /users/{userId}/orders/{orderId}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.orderService.Delete(r.Context(), middleware.ActorFrom(r.Context()), chi.URLParam(r, "userId"), chi.URLParam(r, "orderId"))
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": deleted}, h.log)
}

// ExecuteOrder handles GET /nokey/execute/users/{userId}/orders/{orderId}?confirm=&ordercode=
// The link is mailed to the caterer; the order code is its only credential.
func (h *OrderHandler) ExecuteOrder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	confirm, err := strconv.ParseBool(query.Get("confirm"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "confirm must be true or false", h.log)
		return
	}

	result, err := h.orderService.Execute(r.Context(),
		chi.URLParam(r, "userId"),
		chi.URLParam(r, "orderId"),
		confirm,
		chargePayment(r),
		query.Get("ordercode"),
	)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, result, h.log)
}
