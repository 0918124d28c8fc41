package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Store      StoreConfig
	Payment    PaymentConfig
	Capability CapabilityConfig
	Kafka      KafkaConfig
	Voucher    VoucherConfig
	LogLevel   string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for authentication
}

// StoreConfig selects where orders are persisted
type StoreConfig struct {
	Driver string // memory, sqlite or postgres
	DSN    string
}

type PaymentConfig struct {
	Provider        string // sandbox or stripe
	StripeSecretKey string
	StripeBaseURL   string
	Currency        string
	TimeoutSeconds  int
}

type CapabilityConfig struct {
	Secret string
}

// KafkaConfig is optional; with no brokers events are dropped
type KafkaConfig struct {
	Brokers string
	Topic   string
}

type VoucherConfig struct {
	Sources []string // gzip URLs or local files
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
			DSN:    getEnv("STORE_DSN", "file:orders.db"),
		},
		Payment: PaymentConfig{
			Provider:        strings.ToLower(getEnv("PAYMENT_PROVIDER", "sandbox")),
			StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
			StripeBaseURL:   os.Getenv("STRIPE_BASE_URL"),
			Currency:        strings.ToLower(getEnv("PAYMENT_CURRENCY", "eur")),
			TimeoutSeconds:  getEnvAsInt("PAYMENT_TIMEOUT", 10),
		},
		Capability: CapabilityConfig{
			Secret: os.Getenv("ORDER_CODE_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "order-events"),
		},
		Voucher: VoucherConfig{
			Sources: getEnvAsSlice("VOUCHER_SOURCES", nil),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be memory, sqlite, or postgres)", c.Store.Driver)
	}

	switch c.Payment.Provider {
	case "sandbox":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required for the stripe provider")
		}
	default:
		return fmt.Errorf("invalid payment provider: %s (must be sandbox or stripe)", c.Payment.Provider)
	}
	if len(c.Payment.Currency) != 3 {
		return fmt.Errorf("invalid currency: %q (must be a 3-letter ISO code)", c.Payment.Currency)
	}
	if c.Payment.TimeoutSeconds <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}

	if len(c.Capability.Secret) < 16 {
		return fmt.Errorf("ORDER_CODE_SECRET must be at least 16 characters")
	}

	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
