package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/config"
	"github.com/Lixing-Zhang/catering-orders/internal/metrics"
	"github.com/Lixing-Zhang/catering-orders/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig collects the handlers mounted by NewRouter.
// Vouchers and MetricsHandler are optional.
type RouterConfig struct {
	Auth           config.AuthConfig
	Orders         *OrderHandler
	Catalog        *CatalogHandler
	Vouchers       *VoucherHandler
	Health         *HealthHandler
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter builds the HTTP surface of the order service
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key",
			middleware.ActorIDHeader, middleware.ActorRoleHeader, ChargePaymentHeader,
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.ServeHTTP)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// Caterer links carry their own credential, so no API key here
	r.Get("/nokey/execute/users/{userId}/orders/{orderId}", cfg.Orders.ExecuteOrder)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Auth))
		r.Use(middleware.Identity)

		r.Route("/users/{userId}/orders", func(r chi.Router) {
			r.Post("/", cfg.Orders.CreateOrder)
			r.Get("/", cfg.Orders.ListOrders)
			r.Get("/{orderId}", cfg.Orders.GetOrder)
			r.Put("/{orderId}", cfg.Orders.UpdateOrder)
			r.Delete("/{orderId}", cfg.Orders.DeleteOrder)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/dishes", cfg.Catalog.ListDishes)
			r.Get("/dishes/{dishId}", cfg.Catalog.GetDish)
			r.Get("/caterers/{catererId}", cfg.Catalog.GetCaterer)

			if cfg.Vouchers != nil {
				r.Get("/vouchers/stats", cfg.Vouchers.GetStats)
				r.Get("/vouchers/{code}", cfg.Vouchers.ValidateVoucher)
			}
		})
	})

	return r
}
