package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Log      LogConfig
	Mpesa    MpesaConfig
	Payment  PaymentConfig
	Events   EventsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	ServiceName string
	Development bool
}

// MpesaConfig holds the STK push gateway configuration.
type MpesaConfig struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	ShortCode        string
	PassKey          string
	CallbackURL      string
	AccountReference string
	RequestTimeout   time.Duration
}

// PaymentConfig holds payment request lifecycle configuration.
type PaymentConfig struct {
	RequestTTL      time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
	CheckoutLockTTL time.Duration
	StatusCacheTTL  time.Duration
}

// EventsConfig holds domain event publishing configuration.
// Events are only logged when QueueURL is empty.
type EventsConfig struct {
	QueueURL       string
	AWSRegion      string
	AWSAccessKey   string
	AWSSecret      string
	PublishTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "storefront-payments"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			ServiceName: getEnv("LOG_SERVICE_NAME", "storefront-payments"),
			Development: getBoolEnv("LOG_DEVELOPMENT", false),
		},
		Mpesa: MpesaConfig{
			BaseURL:          getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:      getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:   getEnv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:        getEnv("MPESA_SHORTCODE", "174379"),
			PassKey:          getEnv("MPESA_PASSKEY", ""),
			CallbackURL:      getEnv("MPESA_CALLBACK_URL", "http://localhost:8080/v1/mpesa/callback"),
			AccountReference: getEnv("MPESA_ACCOUNT_REFERENCE", "Storefront"),
			RequestTimeout:   getDurationEnv("MPESA_REQUEST_TIMEOUT", 15*time.Second),
		},
		Payment: PaymentConfig{
			RequestTTL:      getDurationEnv("PAYMENT_REQUEST_TTL", 5*time.Minute),
			SweepInterval:   getDurationEnv("PAYMENT_SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize:  getIntEnv("PAYMENT_SWEEP_BATCH_SIZE", 100),
			CheckoutLockTTL: getDurationEnv("CHECKOUT_LOCK_TTL", 30*time.Second),
			StatusCacheTTL:  getDurationEnv("PAYMENT_STATUS_CACHE_TTL", 10*time.Minute),
		},
		Events: EventsConfig{
			QueueURL:       getEnv("EVENTS_SQS_QUEUE_URL", ""),
			AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKey:   getEnv("EVENTS_AWS_ACCESS_KEY_ID", ""),
			AWSSecret:      getEnv("EVENTS_AWS_SECRET_ACCESS_KEY", ""),
			PublishTimeout: getDurationEnv("EVENTS_PUBLISH_TIMEOUT", 3*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
