package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/catering-orders/internal/service"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler handles dish and caterer HTTP requests
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// ListDishes handles GET /api/dishes
func (h *CatalogHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.ListDishes(r.Context())
	if err != nil {
		h.logger.Error("failed to list dishes", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, dishes, h.logger)
}

// GetDish handles GET /api/dishes/{dishId}
// - 200: successful operation
// - 404: Dish not found
func (h *CatalogHandler) GetDish(w http.ResponseWriter, r *http.Request) {
	dishID := chi.URLParam(r, "dishId")

	dish, err := h.service.GetDish(r.Context(), dishID)
	if err != nil {
		if StatusFor(err) == http.StatusNotFound {
			h.logger.Info("dish not found", "dishId", dishID)
			WriteError(w, http.StatusNotFound, "Dish not found", h.logger)
			return
		}

		h.logger.Error("failed to get dish", "dishId", dishID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, dish, h.logger)
}

// GetCaterer handles GET /api/caterers/{catererId}, including the caterer's working times
func (h *CatalogHandler) GetCaterer(w http.ResponseWriter, r *http.Request) {
	catererID := chi.URLParam(r, "catererId")

	caterer, err := h.service.GetCaterer(r.Context(), catererID)
	if err != nil {
		if StatusFor(err) == http.StatusNotFound {
			WriteError(w, http.StatusNotFound, "Caterer not found", h.logger)
			return
		}

		h.logger.Error("failed to get caterer", "catererId", catererID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, caterer, h.logger)
}
