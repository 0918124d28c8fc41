package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/capability"
	"github.com/Lixing-Zhang/catering-orders/internal/config"
	"github.com/Lixing-Zhang/catering-orders/internal/events"
	"github.com/Lixing-Zhang/catering-orders/internal/handlers"
	"github.com/Lixing-Zhang/catering-orders/internal/metrics"
	"github.com/Lixing-Zhang/catering-orders/internal/payment"
	"github.com/Lixing-Zhang/catering-orders/internal/repository"
	"github.com/Lixing-Zhang/catering-orders/internal/service"
	"github.com/Lixing-Zhang/catering-orders/internal/voucher"
	"github.com/Lixing-Zhang/catering-orders/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

// run wires every component and serves until ctx is done. Resources opened
// here are closed before it returns, on every path.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting catering order server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"store", cfg.Store.Driver,
		"sqlite_build", repository.SQLiteBuildMode,
		"payment_provider", cfg.Payment.Provider,
		"log_level", cfg.LogLevel,
	)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Order store
	orders, err := repository.OpenOrderRepository(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("failed to open order store %q: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := orders.Close(); err != nil {
			log.Error("failed to close order store", "error", err)
		}
	}()

	catalog := repository.NewSeededCatalogRepository()

	gateway, err := newGateway(cfg.Payment)
	if err != nil {
		return fmt.Errorf("failed to create payment gateway: %w", err)
	}

	codec, err := capability.NewCodec([]byte(cfg.Capability.Secret))
	if err != nil {
		return fmt.Errorf("failed to create order code codec: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := events.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		log.Info("publishing order events to kafka", "brokers", brokers, "topic", cfg.Kafka.Topic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("failed to flush event publisher", "error", err)
		}
	}()

	deps := service.OrderServiceDeps{
		Orders:    orders,
		Catalog:   catalog,
		Gateway:   gateway,
		Codec:     codec,
		Publisher: publisher,
		Metrics:   appMetrics,
		Logger:    log,
		Currency:  cfg.Payment.Currency,
	}

	// Vouchers are only checked when sources are configured
	var voucherHandler *handlers.VoucherHandler
	if len(cfg.Voucher.Sources) > 0 {
		log.Info("loading voucher data...", "sources", len(cfg.Voucher.Sources))
		validator := voucher.NewValidator()
		if err := validator.Load(ctx, cfg.Voucher.Sources); err != nil {
			return fmt.Errorf("failed to load voucher data: %w", err)
		}

		stats := validator.GetStats()
		log.Info("voucher data loaded successfully",
			"total_files", stats["total_files"],
			"total_vouchers", stats["total_vouchers"],
		)
		deps.Vouchers = validator
		voucherHandler = handlers.NewVoucherHandler(validator, log)
	}

	// Initialize services
	orderService, err := service.NewOrderService(deps)
	if err != nil {
		return fmt.Errorf("failed to create order service: %w", err)
	}
	catalogService := service.NewCatalogService(catalog)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           cfg.Auth,
		Orders:         handlers.NewOrderHandler(orderService, log),
		Catalog:        handlers.NewCatalogHandler(catalogService, log),
		Vouchers:       voucherHandler,
		Health:         handlers.NewHealthHandler(orders, log),
		Metrics:        appMetrics,
		MetricsHandler: metrics.Handler(registry),
		Logger:         log,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func newGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	switch cfg.Provider {
	case "stripe":
		gw, err := payment.NewStripeGateway(payment.StripeConfig{
			SecretKey: cfg.StripeSecretKey,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			BaseURL:   cfg.StripeBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return payment.NewSandboxGateway(), nil
	}
}
