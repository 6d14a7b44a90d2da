// Package app holds the runtime configuration and wiring shared by the reflections commands.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/internal/httpapi"
	"github.com/MarkoPoloResearchLab/reflections/internal/summary"
	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
)

// Store drivers.
const (
	DriverGorm   = "gorm"
	DriverPgx    = "pgx"
	DriverMemory = "memory"
)

const (
	defaultDatabaseURL   = "sqlite:///tmp/reflections.db"
	defaultTimezone      = "Local"
	defaultLocale        = "en-US"
	defaultListenAddr    = ":8090"
	defaultWatchInterval = 2 * time.Second
)

// ErrInvalidConfig reports an unusable runtime configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Config aggregates the settings every command reads.
type Config struct {
	DatabaseURL    string
	StoreDriver    string
	Timezone       string
	Locale         string
	CatalogPath    string
	ListenAddr     string
	AllowedOrigins []string
	SummaryURL     string
	SummaryAPIKey  string
	SummaryTimeout time.Duration
	SummaryRecent  int
	WatchInterval  time.Duration
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.StoreDriver = strings.ToLower(defaultIfEmpty(cfg.StoreDriver, DriverGorm))
	cfg.Timezone = defaultIfEmpty(cfg.Timezone, defaultTimezone)
	cfg.Locale = defaultIfEmpty(cfg.Locale, defaultLocale)
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.CatalogPath = strings.TrimSpace(cfg.CatalogPath)
	cfg.SummaryURL = strings.TrimSpace(cfg.SummaryURL)
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = summary.DefaultTimeout
	}
	if cfg.SummaryRecent <= 0 {
		cfg.SummaryRecent = summary.DefaultRecent
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = defaultWatchInterval
	}

	switch cfg.StoreDriver {
	case DriverGorm, DriverMemory:
	case DriverPgx:
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("%w: store driver %s needs a postgres database url", ErrInvalidConfig, DriverPgx)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, cfg.StoreDriver)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
	}
	if _, err := journal.NewDateFormatter(cfg.Locale); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location returns the time zone calendar dates are computed in.
func (cfg Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}

// HTTPConfig returns the settings of the HTTP facade.
func (cfg Config) HTTPConfig() httpapi.Config {
	return httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
