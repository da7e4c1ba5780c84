// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all configuration values for the trip API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string for the write store. Required.
	DatabaseURL string

	// MongoURI is the MongoDB connection string for the read store. Required.
	MongoURI string

	// MongoDatabase is the MongoDB database name. Defaults to "fleettrack".
	MongoDatabase string

	// JWTSecret signs and verifies bearer tokens. Required.
	// Token issuance is an external collaborator; this service only validates.
	JWTSecret string

	// TelemetryURL is the base URL of the telemetry sink. Defaults to
	// "http://localhost:8081". Notifications to it are best-effort.
	TelemetryURL string

	// TelemetryTimeout bounds each fire-and-forget telemetry notification.
	// Defaults to 2s. This timeout is distinct from the request timeout.
	TelemetryTimeout time.Duration

	// IdempotencyTTL is the window during which a reused Idempotency-Key is
	// rejected as a duplicate. Defaults to 1h.
	IdempotencyTTL time.Duration

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string
}

// SinkConfig holds all configuration values for the telemetry sink server.
type SinkConfig struct {
	// Port is the TCP port the sink listens on. Defaults to "8081".
	Port string

	// MongoURI is the MongoDB connection string for the telemetry log. Required.
	MongoURI string

	// MongoDatabase is the MongoDB database name. Defaults to "fleettrack".
	MongoDatabase string

	// LogLevel controls the minimum log level. Defaults to "info".
	LogLevel string
}

// Load reads trip API configuration from environment variables.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "fleettrack"),
		TelemetryURL:     getEnv("TELEMETRY_URL", "http://localhost:8081"),
		TelemetryTimeout: getDuration("TELEMETRY_TIMEOUT", 2*time.Second),
		IdempotencyTTL:   getDuration("IDEMPOTENCY_TTL", time.Hour),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.MongoURI = os.Getenv("MONGO_URI")
	if cfg.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// LoadSink reads telemetry sink configuration from environment variables.
func LoadSink() (SinkConfig, error) {
	cfg := SinkConfig{
		Port:          getEnv("TELEMETRY_PORT", "8081"),
		MongoDatabase: getEnv("MONGO_DATABASE", "fleettrack"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	cfg.MongoURI = os.Getenv("MONGO_URI")
	if cfg.MongoURI == "" {
		return SinkConfig{}, fmt.Errorf("required environment variables not set: MONGO_URI")
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

// getDuration parses the environment variable named by key as a
// time.Duration, falling back on absence or parse failure.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
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
