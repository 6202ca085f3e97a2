package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is loaded once at startup from the environment. DATABASE_URL
// and REDIS_ADDR are optional; when absent the server falls back to
// in-process state, which is fine for a single instance.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL     time.Duration
	IdempotencyTTL time.Duration
	SpinRateLimit  int
	SpinRateWindow time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionTTL:     getDuration("SESSION_TTL", time.Hour),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		SpinRateLimit:  getInt("SPIN_RATE_LIMIT", 5),
		SpinRateWindow: getDuration("SPIN_RATE_WINDOW", time.Second),
	}
	cfg.RedisDB = getInt("REDIS_DB", 0)

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-do-not-use"
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
