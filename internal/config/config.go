// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Event sinks.
const (
	SinkMemory = "memory"
	SinkRedis  = "redis"
	SinkKafka  = "kafka"
	SinkNone   = "none"
)

// Config holds all configuration values for the SmartFare server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// Store selects the persistence backend: "postgres" (default) or "memory".
	Store string

	// DatabaseURL is the Postgres connection string. Required when Store is postgres.
	DatabaseURL string

	// SeedFile is a YAML fixture file loaded into the memory store at startup.
	SeedFile string

	// TxTimeout bounds every settlement transaction. Defaults to 5s.
	TxTimeout time.Duration

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// EventSink selects where journey events go: memory (default), redis, kafka or none.
	EventSink string

	// RedisAddr is host:port of the Redis server used by the redis sink and the tap guard.
	RedisAddr string

	// KafkaBrokers lists the brokers of the kafka sink.
	KafkaBrokers []string

	// TapDebounce is the window in which a second tap of the same card is refused.
	// Zero disables the guard.
	TapDebounce time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// value that does not parse.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Store:        getEnv("STORE", StorePostgres),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SeedFile:     os.Getenv("SEED_FILE"),
		EventSink:    getEnv("EVENT_SINK", SinkMemory),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
	}

	var problems []string

	var err error
	if cfg.TxTimeout, err = time.ParseDuration(getEnv("TX_TIMEOUT", "5s")); err != nil || cfg.TxTimeout <= 0 {
		problems = append(problems, "TX_TIMEOUT must be a positive duration")
	}
	if cfg.TapDebounce, err = time.ParseDuration(getEnv("TAP_DEBOUNCE", "0")); err != nil || cfg.TapDebounce < 0 {
		problems = append(problems, "TAP_DEBOUNCE must be a non-negative duration")
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		problems = append(problems, "MAX_BODY_BYTES must be a positive integer")
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORE must be %s or %s, got %q", StorePostgres, StoreMemory, cfg.Store))
	}

	switch cfg.EventSink {
	case SinkMemory, SinkNone:
	case SinkRedis:
		if cfg.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required when EVENT_SINK=redis")
		}
	case SinkKafka:
		if len(cfg.KafkaBrokers) == 0 {
			problems = append(problems, "KAFKA_BROKERS is required when EVENT_SINK=kafka")
		}
	default:
		problems = append(problems, fmt.Sprintf("EVENT_SINK must be one of memory, redis, kafka, none, got %q", cfg.EventSink))
	}

	if cfg.TapDebounce > 0 && cfg.RedisAddr == "" {
		problems = append(problems, "REDIS_ADDR is required when TAP_DEBOUNCE is set")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
