package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL          string
	ServerPort           string
	RedisURL             string
	RabbitMQURL          string
	SessionSigningSecret string
	SessionAccessTTL     time.Duration
	SessionRefreshTTL    time.Duration
	GoogleIssuer         string
	GoogleJWKSURL        string
	PublishAttempts      int
	PublishBackoff       time.Duration
	PublishTimeout       time.Duration
	RateLimitPerMinute   int
	ServerDebugMode      bool
	OTELEnabled          bool
	OTELEndpoint         string
}

// minSigningSecretLength guards against trivially brute-forceable HS256 keys.
const minSigningSecretLength = 32

// Load loads configuration from environment variables. A local .env file is
// read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		SessionSigningSecret: getEnv("SESSION_SIGNING_SECRET", ""),
		SessionAccessTTL:     getEnvDuration("SESSION_ACCESS_TTL", 15*time.Minute),
		SessionRefreshTTL:    getEnvDuration("SESSION_REFRESH_TTL", 7*24*time.Hour),
		GoogleIssuer:         getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		GoogleJWKSURL:        getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		PublishAttempts:      getEnvInt("PUBLISH_ATTEMPTS", 3),
		PublishBackoff:       getEnvDuration("PUBLISH_BACKOFF", 2*time.Second),
		PublishTimeout:       getEnvDuration("PUBLISH_TIMEOUT", 5*time.Second),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		ServerDebugMode:      getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:          getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for event publishing")
	}

	if len(cfg.SessionSigningSecret) < minSigningSecretLength {
		return nil, fmt.Errorf("SESSION_SIGNING_SECRET must be at least %d characters", minSigningSecretLength)
	}

	if cfg.SessionRefreshTTL <= cfg.SessionAccessTTL {
		return nil, fmt.Errorf("SESSION_REFRESH_TTL (%s) must be greater than SESSION_ACCESS_TTL (%s)",
			cfg.SessionRefreshTTL, cfg.SessionAccessTTL)
	}

	if cfg.PublishAttempts < 1 {
		return nil, fmt.Errorf("PUBLISH_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
