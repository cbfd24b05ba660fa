package config

import (
	"os"
	"strconv"
	"time"

	"tikiti/internal/cache"
	"tikiti/internal/database"
	"tikiti/internal/external"
	"tikiti/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Shared secret the payment processor signs webhook bodies with
	WebhookSecret string
	// Bearer token the external scheduler presents on sweep endpoints
	SweepToken string

	Database database.Config
	NATS     messaging.Config
	Redis    cache.Config
	Payment  external.PaymentConfig
	Mailer   external.MailerConfig
}

// Load reads configuration from environment variables, with .env support
func Load() *Config {
	// Missing .env is fine in deployed environments
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		SweepToken:    getEnv("SWEEP_TOKEN", ""),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tikiti"),
			Password:           getEnv("DB_PASSWORD", "tikiti123"),
			DBName:             getEnv("DB_NAME", "tikiti"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tikiti"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tikiti-api"),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		Payment: external.PaymentConfig{
			BaseURL:    getEnv("PAYMENT_API_URL", "https://api.monipay.example.com"),
			APIKey:     getEnv("PAYMENT_API_KEY", ""),
			Currency:   getEnv("PAYMENT_CURRENCY", "SLE"),
			SuccessURL: getEnv("PAYMENT_SUCCESS_URL", "https://tikiti.example.com/checkout/success"),
			CancelURL:  getEnv("PAYMENT_CANCEL_URL", "https://tikiti.example.com/checkout/cancel"),
			Timeout:    time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Mailer: external.MailerConfig{
			BaseURL: getEnv("MAIL_API_URL", ""),
			APIKey:  getEnv("MAIL_API_KEY", ""),
			From:    getEnv("MAIL_FROM", "tickets@tikiti.example.com"),
			Timeout: time.Duration(getEnvInt("MAIL_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
