// Package config provides centralized configuration for the promptreel
// server. All configurable values are loaded from environment variables
// with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// BackendURL is the base URL of the prompt-generation backend.
	// When empty, the server runs fully offline with the stub gateway.
	BackendURL string

	// DBPath is the path to the SQLite archive file.
	DBPath string

	// GenerateTimeout bounds one /generate backend call.
	GenerateTimeout time.Duration

	// MutateTimeout bounds one /regenerate or /validate_and_optimize call.
	MutateTimeout time.Duration

	// ExtractTimeout bounds one product-page fetch.
	ExtractTimeout time.Duration

	// ArchiveInterval is the flush interval of the archiver worker.
	ArchiveInterval time.Duration

	// MaxUploadBytes limits incoming request bodies (attachments included).
	MaxUploadBytes int64

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		BackendURL:      envOr("BACKEND_URL", "http://localhost:8000"),
		DBPath:          envOr("DB_PATH", "promptreel.db"),
		GenerateTimeout: envDuration("GENERATE_TIMEOUT", 180*time.Second),
		MutateTimeout:   envDuration("MUTATE_TIMEOUT", 120*time.Second),
		ExtractTimeout:  envDuration("EXTRACT_TIMEOUT", 30*time.Second),
		ArchiveInterval: envDuration("ARCHIVE_INTERVAL", 5*time.Second),
		MaxUploadBytes:  envInt64("MAX_UPLOAD_BYTES", 20<<20),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

// UseStubGateway returns true when no backend URL is configured, in
// which case the server serves deterministic offline content.
func (c Config) UseStubGateway() bool {
	return c.BackendURL == "" || c.BackendURL == "offline"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
