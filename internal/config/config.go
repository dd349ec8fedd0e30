// Package config loads runtime configuration from the environment, with a
// local .env file as an optional convenience for development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server and CLI need from the environment.
type Config struct {
	// SQLite database file. ":memory:" keeps everything in-process.
	DatabasePath string

	// Web server
	Bind        string
	CORSOrigins []string

	// Default currency for new rooms.
	Currency string

	// Log level: debug, info, warn, error.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present (non-fatal if missing). Every
// variable has a development default, so Load never fails on a bare
// environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabasePath: getEnvDefault("FAIRSPLIT_DB", "fairsplit.db"),
		Bind:         getEnvDefault("FAIRSPLIT_BIND", "0.0.0.0:8080"),
		CORSOrigins:  splitList(getEnvDefault("FAIRSPLIT_CORS_ORIGINS", "http://localhost:3000")),
		Currency:     getEnvDefault("FAIRSPLIT_CURRENCY", "INR"),
		LogLevel:     getEnvDefault("FAIRSPLIT_LOG_LEVEL", "info"),
	}
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
