package httpapi

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr      = ":8090"
	defaultAllowedOrigin   = "http://localhost:8000"
	defaultRequestTimeout  = 10 * time.Second
	defaultEntryListLimit  = 50
	defaultShutdownTimeout = 5 * time.Second
)

// Config aggregates runtime settings for the HTTP facade.
type Config struct {
	ListenAddr      string
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	EntryListLimit  int
	ShutdownTimeout time.Duration
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.EntryListLimit <= 0 {
		cfg.EntryListLimit = defaultEntryListLimit
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen addr is required")
	}
	for _, origin := range cfg.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("allowed origins must not contain blanks")
		}
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
