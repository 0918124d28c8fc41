package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Lixing-Zhang/catering-orders/internal/config"
	"github.com/Lixing-Zhang/catering-orders/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:     config.ServerConfig{Host: "127.0.0.1", Port: "0", ReadTimeout: 5, WriteTimeout: 5, ShutdownTimeout: 5},
		Auth:       config.AuthConfig{APIKeys: []string{"apitest"}},
		Store:      config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "orders.db")},
		Payment:    config.PaymentConfig{Provider: "sandbox", Currency: "eur", TimeoutSeconds: 5},
		Capability: config.CapabilityConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Kafka:      config.KafkaConfig{Topic: "order-events"},
		LogLevel:   "error",
	}
}

func TestRun_StartupFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Voucher.Sources = []string{filepath.Join(t.TempDir(), "missing.txt")}

	err := run(context.Background(), cfg, logger.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voucher")
}

func TestRun_BadCodecSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capability.Secret = "short"

	err := run(context.Background(), cfg, logger.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec")
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, run(ctx, testConfig(t), logger.New("error")))
}
