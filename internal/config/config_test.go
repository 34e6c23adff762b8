package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.App.RequestTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.AutoRefresh)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
app:
  port: "9090"
  request_timeout: 30s
providers:
  openweather_key: from-file
preferences:
  store: memory
mqtt:
  prefix: kiosk/lobby
database:
  host: db
`)

	cfg, err := config.LoadFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout)
	assert.Equal(t, "from-file", cfg.Providers.OpenWeatherKey)
	assert.Equal(t, config.StoreMemory, cfg.Preferences.Store)
	assert.Equal(t, "kiosk/lobby", cfg.MQTT.Prefix)
	assert.Equal(t, "db", cfg.Database.Host)
	// Untouched sections keep defaults.
	assert.Equal(t, "http://localhost:8080", cfg.Backend.URL)
	assert.Equal(t, "airwatch", cfg.Database.Database)
}

func TestLoadFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := config.LoadFile(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)

	_, err = config.LoadFile(missing, true)
	assert.Error(t, err)
}

func TestLoadFile_Malformed(t *testing.T) {
	_, err := config.LoadFile(writeFile(t, "app: [unterminated"), true)
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "providers:\n  openweather_key: from-file\n")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENWEATHER_KEY", "from-env")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "7")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("AUTO_REFRESH_INTERVAL", "90s")
	t.Setenv("BACKEND_URL", "https://aq.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers.OpenWeatherKey)
	assert.Equal(t, 7*time.Second, cfg.App.RequestTimeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.AutoRefresh)
	assert.Equal(t, "https://aq.example.com", cfg.Backend.URL)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port", func(c *config.Config) { c.App.Port = "http" }},
		{"timeout", func(c *config.Config) { c.App.RequestTimeout = 0 }},
		{"backend url", func(c *config.Config) { c.Backend.URL = "localhost" }},
		{"auto refresh", func(c *config.Config) { c.Dashboard.AutoRefresh = time.Millisecond }},
		{"store", func(c *config.Config) { c.Preferences.Store = "redis" }},
		{"sqlite path", func(c *config.Config) { c.Preferences.SQLitePath = "" }},
		{"sample ratio", func(c *config.Config) { c.Telemetry.SampleRatio = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}
}
