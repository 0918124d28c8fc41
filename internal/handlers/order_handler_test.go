package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Lixing-Zhang/catering-orders/internal/capability"
	"github.com/Lixing-Zhang/catering-orders/internal/config"
	"github.com/Lixing-Zhang/catering-orders/internal/events"
	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/Lixing-Zhang/catering-orders/internal/payment"
	"github.com/Lixing-Zhang/catering-orders/internal/repository"
	"github.com/Lixing-Zhang/catering-orders/internal/service"
	"github.com/Lixing-Zhang/catering-orders/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "apitest"

type codeCapture struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeCapture) Publish(ctx context.Context, evt events.Event) error {
	if evt.Type != events.TypeOrderCreated {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[evt.OrderID], _ = evt.Payload["code"].(string)
	return nil
}

func (c *codeCapture) Close() error { return nil }

func (c *codeCapture) code(orderID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[orderID]
}

type testServer struct {
	handler http.Handler
	gateway *payment.SandboxGateway
	codes   *codeCapture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.New("error")

	codec, err := capability.NewCodec([]byte("handler-test-secret-0123456789"))
	require.NoError(t, err)

	orders := repository.NewInMemoryOrderRepository()
	catalog := repository.NewSeededCatalogRepository()
	gateway := payment.NewSandboxGateway()
	codes := &codeCapture{codes: make(map[string]string)}

	orderService, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:    orders,
		Catalog:   catalog,
		Gateway:   gateway,
		Codec:     codec,
		Publisher: codes,
		Logger:    log,
		Currency:  "eur",
	})
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{
		Auth:    config.AuthConfig{APIKeys: []string{testAPIKey}},
		Orders:  NewOrderHandler(orderService, log),
		Catalog: NewCatalogHandler(service.NewCatalogService(catalog), log),
		Health:  NewHealthHandler(orders, log),
		Logger:  log,
	})

	return &testServer{handler: handler, gateway: gateway, codes: codes}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func userHeaders(userID string) map[string]string {
	return map[string]string{
		"api_key":      testAPIKey,
		"X-Actor-ID":   userID,
		"X-Actor-Role": "user",
	}
}

func (s *testServer) createOrder(t *testing.T, userID string, charge bool) models.Order {
	t.Helper()
	headers := userHeaders(userID)
	if !charge {
		headers[ChargePaymentHeader] = "false"
	}
	w := s.do(t, http.MethodPost, "/users/"+userID+"/orders", models.CreateOrderRequest{
		DishID:    "1",
		Quantity:  1,
		Pickup:    "mon-19:00",
		CardToken: "tok_visa",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	return order
}

func executePath(userID, orderID string, confirm bool, code string) string {
	return fmt.Sprintf("/nokey/execute/users/%s/orders/%s?confirm=%t&ordercode=%s", userID, orderID, confirm, url.QueryEscape(code))
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		headers        map[string]string
		expectedStatus int
	}{
		{
			name:           "successful order",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 2, Pickup: "mon-19:00", CardToken: "tok_visa"},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid quantity",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 0, Pickup: "mon-19:00", CardToken: "tok_visa"},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed pickup",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 1, Pickup: "mon-25:00", CardToken: "tok_visa"},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown dish",
			requestBody:    models.CreateOrderRequest{DishID: "99999", Quantity: 1, Pickup: "mon-19:00", CardToken: "tok_visa"},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "card declined",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 1, Pickup: "mon-19:00", CardToken: payment.SandboxDeclinedToken},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "gateway unavailable",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 1, Pickup: "mon-19:00", CardToken: payment.SandboxUnavailableToken},
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "other user's path",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 1, Pickup: "mon-19:00", CardToken: "tok_visa"},
			headers:        userHeaders("u2"),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing api key",
			requestBody:    models.CreateOrderRequest{DishID: "1", Quantity: 1, Pickup: "mon-19:00", CardToken: "tok_visa"},
			headers:        map[string]string{"X-Actor-ID": "u1"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			headers:        userHeaders("u1"),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			w := srv.do(t, http.MethodPost, "/users/u1/orders", tt.requestBody, tt.headers)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			// The API key middleware answers in plain text
			if tt.expectedStatus != http.StatusOK && tt.expectedStatus != http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

// Scenario 1: charging disabled leaves a pending, unpaid order
func TestScenario_CreateWithoutCharge(t *testing.T) {
	srv := newTestServer(t)

	order := srv.createOrder(t, "u1", false)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.False(t, order.Paid)
	assert.Nil(t, order.ChargeID)

	charges, _ := srv.gateway.Calls()
	assert.Equal(t, 0, charges)
}

// Scenario 2: a pickup outside the caterer's hours persists nothing and charges nothing
func TestScenario_CreateOutsideHours(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/users/u1/orders", models.CreateOrderRequest{
		DishID: "1", Quantity: 1, Pickup: "mon-16:00", CardToken: "tok_visa",
	}, userHeaders("u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := srv.do(t, http.MethodGet, "/users/u1/orders", nil, userHeaders("u1"))
	require.Equal(t, http.StatusOK, list.Code)
	var orders []models.Order
	require.NoError(t, json.NewDecoder(list.Body).Decode(&orders))
	assert.Empty(t, orders)

	charges, _ := srv.gateway.Calls()
	assert.Equal(t, 0, charges)
}

// Scenarios 3 and 4: declining an unpaid order issues no refund; executing again conflicts
func TestScenario_DeclineUnpaidThenReexecute(t *testing.T) {
	srv := newTestServer(t)
	order := srv.createOrder(t, "u1", false)
	code := srv.codes.code(order.ID)
	require.NotEmpty(t, code)

	w := srv.do(t, http.MethodGet, executePath("u1", order.ID, false, code), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.ExecuteResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, models.StatusDeclined, result.Order.Status)
	assert.False(t, result.Refund.Attempted)

	_, refunds := srv.gateway.Calls()
	assert.Equal(t, 0, refunds)

	again := srv.do(t, http.MethodGet, executePath("u1", order.ID, true, code), nil, nil)
	assert.Equal(t, http.StatusConflict, again.Code)

	get := srv.do(t, http.MethodGet, "/users/u1/orders/"+order.ID, nil, userHeaders("u1"))
	require.Equal(t, http.StatusOK, get.Code)
	var stored models.Order
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stored))
	assert.Equal(t, models.StatusDeclined, stored.Status)
}

// Scenario 5: deleted orders are gone whatever their state
func TestScenario_DeleteAnyState(t *testing.T) {
	srv := newTestServer(t)

	pending := srv.createOrder(t, "u1", true)
	confirmed := srv.createOrder(t, "u1", true)
	w := srv.do(t, http.MethodGet, executePath("u1", confirmed.ID, true, srv.codes.code(confirmed.ID)), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, id := range []string{pending.ID, confirmed.ID} {
		del := srv.do(t, http.MethodDelete, "/users/u1/orders/"+id, nil, userHeaders("u1"))
		require.Equal(t, http.StatusOK, del.Code)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(del.Body).Decode(&body))
		assert.True(t, body["deleted"])

		get := srv.do(t, http.MethodGet, "/users/u1/orders/"+id, nil, userHeaders("u1"))
		assert.Equal(t, http.StatusNotFound, get.Code)
	}

	_, refunds := srv.gateway.Calls()
	assert.Equal(t, 0, refunds)
}

func TestOrderHandler_ExecuteDeclinePaid(t *testing.T) {
	srv := newTestServer(t)
	order := srv.createOrder(t, "u1", true)
	code := srv.codes.code(order.ID)

	w := srv.do(t, http.MethodGet, executePath("u1", order.ID, false, code), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.ExecuteResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, models.StatusDeclined, result.Order.Status)
	assert.True(t, result.Refund.Attempted)
	assert.Equal(t, models.RefundSucceeded, result.Refund.Status)
}

func TestOrderHandler_ExecuteRefundDisabled(t *testing.T) {
	srv := newTestServer(t)
	order := srv.createOrder(t, "u1", true)

	w := srv.do(t, http.MethodGet, executePath("u1", order.ID, false, srv.codes.code(order.ID)), nil,
		map[string]string{ChargePaymentHeader: "false"})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.ExecuteResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, models.RefundSkipped, result.Refund.Status)
	_, refunds := srv.gateway.Calls()
	assert.Equal(t, 0, refunds)
}

func TestOrderHandler_ExecuteRejected(t *testing.T) {
	srv := newTestServer(t)
	order := srv.createOrder(t, "u1", true)
	code := srv.codes.code(order.ID)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "wrong code", path: executePath("u1", order.ID, true, "not-the-code"), expectedStatus: http.StatusForbidden},
		{name: "missing code", path: fmt.Sprintf("/nokey/execute/users/u1/orders/%s?confirm=true", order.ID), expectedStatus: http.StatusForbidden},
		{name: "bad confirm", path: fmt.Sprintf("/nokey/execute/users/u1/orders/%s?confirm=maybe&ordercode=%s", order.ID, code), expectedStatus: http.StatusBadRequest},
		{name: "wrong user", path: executePath("u2", order.ID, true, code), expectedStatus: http.StatusNotFound},
		{name: "unknown order", path: executePath("u1", "missing", true, code), expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	get := srv.do(t, http.MethodGet, "/users/u1/orders/"+order.ID, nil, userHeaders("u1"))
	var stored models.Order
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stored))
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestOrderHandler_UpdateOrder(t *testing.T) {
	srv := newTestServer(t)
	order := srv.createOrder(t, "u1", false)
	path := "/users/u1/orders/" + order.ID

	w := srv.do(t, http.MethodPut, path, map[string]interface{}{"pickup": "tue-12:00", "quantity": 2}, userHeaders("u1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "tue-12:00", updated.Pickup.String())
	assert.Equal(t, int64(2598), updated.Amount)

	w = srv.do(t, http.MethodPut, path, map[string]interface{}{}, userHeaders("u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exec := srv.do(t, http.MethodGet, executePath("u1", order.ID, true, srv.codes.code(order.ID)), nil, nil)
	require.Equal(t, http.StatusOK, exec.Code)

	w = srv.do(t, http.MethodPut, path, map[string]interface{}{"pickup": "wed-12:00"}, userHeaders("u1"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	srv := newTestServer(t)
	srv.createOrder(t, "u1", false)
	srv.createOrder(t, "u1", false)
	srv.createOrder(t, "u2", false)

	w := srv.do(t, http.MethodGet, "/users/u1/orders", nil, userHeaders("u1"))
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
	assert.Len(t, orders, 2)

	admin := map[string]string{"api_key": testAPIKey, "X-Actor-ID": "ops", "X-Actor-Role": "admin"}
	w = srv.do(t, http.MethodGet, "/users/u2/orders", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/users/u2/orders", nil, map[string]string{"api_key": testAPIKey})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: bad", service.ErrValidation), want: http.StatusBadRequest},
		{name: "invalid code", err: service.ErrInvalidCode, want: http.StatusForbidden},
		{name: "forbidden", err: fmt.Errorf("%w: no", service.ErrForbidden), want: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("%w: order", service.ErrNotFound), want: http.StatusNotFound},
		{name: "conflict", err: service.ErrConflict, want: http.StatusConflict},
		{name: "declined", err: fmt.Errorf("charge: %w", &payment.Error{Kind: payment.Declined}), want: http.StatusPaymentRequired},
		{name: "invalid request", err: &payment.Error{Kind: payment.InvalidRequest}, want: http.StatusBadRequest},
		{name: "gateway unavailable", err: &payment.Error{Kind: payment.GatewayUnavailable}, want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Store)
}
