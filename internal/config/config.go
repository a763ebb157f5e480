package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings. Every connection value has a
// documented local default; an empty REDIS_URL disables caching without
// failing startup.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Store connection
	DatabaseURL  string
	DatabaseName string

	// Cache connection (optional)
	RedisURL string

	// Event publishing; empty brokers select the in-process publisher
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig reads configuration from the environment, loading a local .env
// file first when present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseName: getEnv("DB_NAME", "schedulehub"),
		RedisURL:     getEnv("REDIS_URL", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "schedule-events"),
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", fmt.Sprintf(
		"host=localhost user=postgres password=postgres dbname=%s port=5432 sslmode=disable",
		cfg.DatabaseName,
	))

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
