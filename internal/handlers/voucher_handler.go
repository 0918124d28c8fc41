package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// voucherValidator is the interface for voucher validation
type voucherValidator interface {
	IsValid(ctx context.Context, code string) bool
	GetStats() map[string]interface{}
}

// VoucherHandler handles HTTP requests for voucher validation
type VoucherHandler struct {
	validator voucherValidator
	logger    *slog.Logger
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(validator voucherValidator, logger *slog.Logger) *VoucherHandler {
	return &VoucherHandler{
		validator: validator,
		logger:    logger,
	}
}

// ValidateVoucher handles GET /api/vouchers/{code}
func (h *VoucherHandler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if h.validator.IsValid(r.Context(), code) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"valid":   true,
			"voucher": code,
		}, h.logger)
		return
	}

	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"valid":   false,
		"voucher": code,
		"message": "Voucher not found or invalid",
	}, h.logger)
}

// GetStats handles GET /api/vouchers/stats (for debugging/monitoring)
func (h *VoucherHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.validator.GetStats(), h.logger)
}
