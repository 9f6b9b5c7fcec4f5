package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/copperkettle/storefront/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds the session store settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds identity and gate settings
type AuthConfig struct {
	SessionTTL        time.Duration
	BcryptCost        int
	MaxSignInAttempts int
	LockoutWindow     time.Duration
	ApprovalRetry     time.Duration
	SecureCookies     bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("STOREFRONT_HOST", "0.0.0.0"),
			Port:            getEnv("STOREFRONT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("STOREFRONT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("STOREFRONT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("STOREFRONT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("STOREFRONT_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("STOREFRONT_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("STOREFRONT_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("STOREFRONT_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("STOREFRONT_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("STOREFRONT_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("STOREFRONT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("STOREFRONT_REDIS_PASSWORD", ""),
			DB:       getEnvInt("STOREFRONT_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SessionTTL:        getEnvDuration("STOREFRONT_SESSION_TTL", 24*time.Hour),
			BcryptCost:        getEnvInt("STOREFRONT_BCRYPT_COST", 10),
			MaxSignInAttempts: getEnvInt("STOREFRONT_MAX_SIGN_IN_ATTEMPTS", 5),
			LockoutWindow:     getEnvDuration("STOREFRONT_LOCKOUT_WINDOW", 15*time.Minute),
			ApprovalRetry:     getEnvDuration("STOREFRONT_APPROVAL_RETRY", 15*time.Second),
			SecureCookies:     getEnvBool("STOREFRONT_SECURE_COOKIES", true),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("STOREFRONT_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("STOREFRONT_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("STOREFRONT_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("STOREFRONT_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("STOREFRONT_OTEL_SERVICE_NAME", "storefront"),
			OTelServiceVersion: getEnv("STOREFRONT_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("STOREFRONT_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
