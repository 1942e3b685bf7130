package config

import (
	"os"
	"strconv"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Refresh  RefreshConfig
	LogLevel string
}

// DatabaseConfig holds measurement store settings
type DatabaseConfig struct {
	// Path is the default database to connect new sessions to. Optional:
	// sessions can connect to a path of their own after creation.
	Path string
	// QueryTimeout bounds every query at the adapter boundary.
	QueryTimeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// RefreshConfig holds periodic refresh settings
type RefreshConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         getEnvOrDefault("SWEEPWATCH_DB", ""),
			QueryTimeout: getEnvMillisOrDefault("QUERY_TIMEOUT_MS", 5000),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Refresh: RefreshConfig{
			Interval: getEnvMillisOrDefault("REFRESH_INTERVAL_MS", 3000),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMillisOrDefault(key string, defaultValue int) time.Duration {
	ms := defaultValue
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ms = parsed
		}
	}
	return time.Duration(ms) * time.Millisecond
}
