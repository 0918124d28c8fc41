package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/Lixing-Zhang/catering-orders/internal/repository"
	"github.com/Lixing-Zhang/catering-orders/internal/service"
	"github.com/Lixing-Zhang/catering-orders/pkg/logger"
	"github.com/go-chi/chi/v5"
)

func newCatalogRouter() http.Handler {
	handler := NewCatalogHandler(service.NewCatalogService(repository.NewSeededCatalogRepository()), logger.New("error"))

	r := chi.NewRouter()
	r.Get("/api/dishes", handler.ListDishes)
	r.Get("/api/dishes/{dishId}", handler.GetDish)
	r.Get("/api/caterers/{catererId}", handler.GetCaterer)
	return r
}

func TestCatalogHandler_ListDishes(t *testing.T) {
	r := newCatalogRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/dishes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var dishes []models.Dish
	if err := json.NewDecoder(w.Body).Decode(&dishes); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(dishes) == 0 {
		t.Error("expected at least one dish")
	}
}

func TestCatalogHandler_GetDish(t *testing.T) {
	r := newCatalogRouter()

	tests := []struct {
		name           string
		dishID         string
		expectedStatus int
	}{
		{name: "existing dish", dishID: "1", expectedStatus: http.StatusOK},
		{name: "unknown dish", dishID: "999", expectedStatus: http.StatusNotFound},
		{name: "non-numeric id", dishID: "abc", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dishes/"+tt.dishID, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusOK {
				var dish models.Dish
				if err := json.NewDecoder(w.Body).Decode(&dish); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if dish.ID != tt.dishID {
					t.Errorf("dish ID = %s, want %s", dish.ID, tt.dishID)
				}
			}
		})
	}
}

func TestCatalogHandler_GetCaterer(t *testing.T) {
	r := newCatalogRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/caterers/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var caterer models.Caterer
	if err := json.NewDecoder(w.Body).Decode(&caterer); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if caterer.WorkingTimes.MinimumPreparationTime != 30 {
		t.Errorf("minimumPreparationTime = %d, want 30", caterer.WorkingTimes.MinimumPreparationTime)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/caterers/999", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
