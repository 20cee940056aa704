package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tamio_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ModeObligation, cfg.EventSourceMode)
	assert.Equal(t, 13, cfg.HorizonWeeks)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.True(t, cfg.DualWrite)
	assert.Equal(t, time.Hour, cfg.ScheduleSyncInterval)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_LegacyMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tamio_test")
	t.Setenv("EVENT_SOURCE_MODE", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeLegacy, cfg.EventSourceMode)
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tamio_test")
	t.Setenv("EVENT_SOURCE_MODE", "both")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidHorizon(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tamio_test")
	t.Setenv("FORECAST_HORIZON_WEEKS", "0")

	_, err := Load()
	assert.Error(t, err)
}
