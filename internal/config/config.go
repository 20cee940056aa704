package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EventSourceMode selects which data path materializes cash events.
type EventSourceMode string

const (
	// ModeLegacy computes events from client/expense-bucket billing config.
	ModeLegacy EventSourceMode = "legacy"
	// ModeObligation computes events from obligation schedules.
	ModeObligation EventSourceMode = "obligation"
)

// Config holds all configuration for the application. It is built once at
// the process boundary and threaded explicitly into constructors; no
// component reads environment state on its own.
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Forecasting
	EventSourceMode EventSourceMode
	HorizonWeeks    int
	BaseCurrency    string
	// DualWrite mirrors client/expense edits into obligation agreements
	// during the data-model migration.
	DualWrite bool

	// Background work
	ScheduleSyncInterval time.Duration
	TriggerSweepSpec     string // cron spec

	// External calls
	UpstreamTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		Port:                 getEnv("PORT", "8080"),
		CORSOrigins:          strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                  getEnv("ENV", "development"),
		EventSourceMode:      EventSourceMode(getEnv("EVENT_SOURCE_MODE", string(ModeObligation))),
		HorizonWeeks:         getEnvInt("FORECAST_HORIZON_WEEKS", 13),
		BaseCurrency:         getEnv("BASE_CURRENCY", "USD"),
		DualWrite:            getEnvBool("OBLIGATION_DUAL_WRITE", true),
		ScheduleSyncInterval: getEnvDuration("SCHEDULE_SYNC_INTERVAL", time.Hour),
		TriggerSweepSpec:     getEnv("TRIGGER_SWEEP_SPEC", "0 6 * * *"),
		UpstreamTimeout:      getEnvDuration("UPSTREAM_TIMEOUT", 5*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.EventSourceMode != ModeLegacy && c.EventSourceMode != ModeObligation {
		return fmt.Errorf("EVENT_SOURCE_MODE must be %q or %q", ModeLegacy, ModeObligation)
	}
	if c.HorizonWeeks < 1 {
		return fmt.Errorf("FORECAST_HORIZON_WEEKS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
