package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/catering-orders/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	authHandler := APIKeyAuth(config.AuthConfig{
		APIKeys: []string{"apitest", "testkey123", "ops-key"},
	})(okHandler("success"))

	tests := []struct {
		name           string
		apiKey         string
		expectedStatus int
	}{
		{name: "first key", apiKey: "apitest", expectedStatus: http.StatusOK},
		{name: "middle key", apiKey: "testkey123", expectedStatus: http.StatusOK},
		{name: "last key", apiKey: "ops-key", expectedStatus: http.StatusOK},
		{name: "missing key", apiKey: "", expectedStatus: http.StatusUnauthorized},
		{name: "unknown key", apiKey: "wrongkey", expectedStatus: http.StatusForbidden},
		{name: "prefix of a key", apiKey: "apites", expectedStatus: http.StatusForbidden},
		{name: "key with suffix", apiKey: "apitest1", expectedStatus: http.StatusForbidden},
		{name: "different case", apiKey: "APITEST", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/users/u1/orders", nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}

			w := httptest.NewRecorder()
			authHandler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "success", w.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	authHandler := APIKeyAuth(config.AuthConfig{})(okHandler("success"))

	req := httptest.NewRequest(http.MethodGet, "/users/u1/orders", nil)
	req.Header.Set(APIKeyHeader, "apitest")
	w := httptest.NewRecorder()
	authHandler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPIKeyAuth_OnlyGuardsItsGroup(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/nokey/execute/users/{userId}/orders/{orderId}", okHandler("executed").ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(config.AuthConfig{APIKeys: []string{"apitest"}}))
		r.Get("/users/{userId}/orders", okHandler("listed").ServeHTTP)
	})

	tests := []struct {
		name           string
		path           string
		apiKey         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "execute link without key", path: "/nokey/execute/users/u1/orders/o1", expectedStatus: http.StatusOK, expectedBody: "executed"},
		{name: "execute link ignores a bad key", path: "/nokey/execute/users/u1/orders/o1", apiKey: "wrongkey", expectedStatus: http.StatusOK, expectedBody: "executed"},
		{name: "orders without key", path: "/users/u1/orders", expectedStatus: http.StatusUnauthorized},
		{name: "orders with key", path: "/users/u1/orders", apiKey: "apitest", expectedStatus: http.StatusOK, expectedBody: "listed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}
