package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	WebhookSecret string
	DefaultTargetURL string

	WorkerPollInterval time.Duration
	WorkerConcurrency  int
	HTTPTimeout        time.Duration
	MaxAttempts        int
	BackoffBase        time.Duration
	BackoffCap         time.Duration

	// RedisURL is optional: when empty, the circuit breaker and live
	// dashboard feed are disabled but core delivery is unaffected.
	RedisURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	secret := getEnv("WEBHOOK_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}

	defaultTarget := getEnv("DEFAULT_TARGET_URL", "")

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      dbURL,
		WebhookSecret:    secret,
		DefaultTargetURL: defaultTarget,

		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 1500*time.Millisecond),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 1),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		MaxAttempts:        getEnvInt("MAX_ATTEMPTS", 20),
		BackoffBase:        getEnvDuration("BACKOFF_BASE", 2*time.Second),
		BackoffCap:         getEnvDuration("BACKOFF_CAP", 1*time.Hour),

		RedisURL: getEnv("REDIS_URL", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
