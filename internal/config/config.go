// Package config loads settings for the airwatch binaries from .env, an
// optional YAML file, and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/breatheroute/airwatch/internal/database"
)

// DefaultFile is read when CONFIG_FILE is unset and the file exists.
const DefaultFile = "airwatch.yaml"

// Preference store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Backend     BackendConfig     `yaml:"backend"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Preferences PreferencesConfig `yaml:"preferences"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	PubSub      PubSubConfig      `yaml:"pubsub"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Database    database.Config   `yaml:"database"`
}

// AppConfig controls the HTTP listener.
type AppConfig struct {
	Env            string        `yaml:"env"`
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

// BackendConfig is where dashboard-side clients send requests.
type BackendConfig struct {
	URL string `yaml:"url"`
}

// ProvidersConfig configures upstream data providers.
type ProvidersConfig struct {
	OpenWeatherKey     string `yaml:"openweather_key"`
	OpenWeatherBaseURL string `yaml:"openweather_base_url"`
	NominatimBaseURL   string `yaml:"nominatim_base_url"`
	IPAPIURL           string `yaml:"ipapi_url"`
	UserAgent          string `yaml:"user_agent"`
}

// GeminiConfig configures the assistant.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// DashboardConfig configures the refresh cycle clients.
type DashboardConfig struct {
	AutoRefresh time.Duration `yaml:"auto_refresh"`
}

// PreferencesConfig selects the layout preference store.
type PreferencesConfig struct {
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlite_path"`
	Owner      string `yaml:"owner"`
}

// MQTTConfig configures the remote display sink.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// PubSubConfig configures remote load triggers.
type PubSubConfig struct {
	ProjectID    string `yaml:"project_id"`
	Subscription string `yaml:"subscription"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App: AppConfig{
			Env:            "development",
			Port:           "8080",
			RequestTimeout: 15 * time.Second,
			LogLevel:       "info",
		},
		Backend: BackendConfig{URL: "http://localhost:8080"},
		Providers: ProvidersConfig{
			OpenWeatherBaseURL: "https://api.openweathermap.org/data/2.5",
			NominatimBaseURL:   "https://nominatim.openstreetmap.org",
			IPAPIURL:           "https://ipapi.co/json/",
			UserAgent:          "airwatch/1.0",
		},
		Gemini:    GeminiConfig{Model: "gemini-2.5-flash"},
		Dashboard: DashboardConfig{AutoRefresh: 5 * time.Minute},
		Preferences: PreferencesConfig{
			Store:      StoreSQLite,
			SQLitePath: "data/preferences.db",
			Owner:      "default",
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "airwatch-worker",
			Prefix:   "airwatch/dashboard",
		},
		PubSub: PubSubConfig{Subscription: "airwatch-dashboard-load"},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
		Database: database.DefaultConfig(),
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE or
// DefaultFile (if present), then environment overrides, and validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_FILE")
	required := path != ""
	if path == "" {
		path = DefaultFile
	}

	cfg, err := LoadFile(path, required)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes path over Default. A missing file is an error only when
// required is set.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.Port, "APP_PORT")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	if v, err := strconv.Atoi(os.Getenv("REQUEST_TIMEOUT_SECONDS")); err == nil {
		c.App.RequestTimeout = time.Duration(v) * time.Second
	}

	setString(&c.Backend.URL, "BACKEND_URL")

	setString(&c.Providers.OpenWeatherKey, "OPENWEATHER_KEY")
	setString(&c.Providers.OpenWeatherBaseURL, "OPENWEATHER_BASE_URL")
	setString(&c.Providers.NominatimBaseURL, "NOMINATIM_BASE_URL")
	setString(&c.Providers.IPAPIURL, "IPAPI_URL")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	if v, err := time.ParseDuration(os.Getenv("AUTO_REFRESH_INTERVAL")); err == nil {
		c.Dashboard.AutoRefresh = v
	}

	setString(&c.Preferences.Store, "PREFERENCES_STORE")
	setString(&c.Preferences.SQLitePath, "PREFERENCES_SQLITE_PATH")
	setString(&c.Preferences.Owner, "PREFERENCES_OWNER")

	setString(&c.MQTT.Broker, "MQTT_BROKER")
	setString(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	setString(&c.MQTT.Username, "MQTT_USERNAME")
	setString(&c.MQTT.Password, "MQTT_PASSWORD")
	setString(&c.MQTT.Prefix, "MQTT_TOPIC_PREFIX")

	setString(&c.PubSub.ProjectID, "PUBSUB_PROJECT_ID")
	setString(&c.PubSub.Subscription, "PUBSUB_SUBSCRIPTION")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64); err == nil {
		c.Telemetry.SampleRatio = v
	}

	c.Database.ApplyEnv()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks values every binary depends on. Binary-specific
// requirements (a database for the postgres store, a Pub/Sub project for the
// worker) are checked where they are used.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.App.Port); err != nil {
		return fmt.Errorf("%w: app.port %q is not a number", ErrInvalid, c.App.Port)
	}
	if c.App.RequestTimeout <= 0 {
		return fmt.Errorf("%w: app.request_timeout must be positive", ErrInvalid)
	}
	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend.url %q must be an absolute URL", ErrInvalid, c.Backend.URL)
	}
	if c.Dashboard.AutoRefresh < time.Second {
		return fmt.Errorf("%w: dashboard.auto_refresh must be at least 1s", ErrInvalid)
	}
	switch c.Preferences.Store {
	case StoreMemory, StorePostgres:
	case StoreSQLite:
		if c.Preferences.SQLitePath == "" {
			return fmt.Errorf("%w: preferences.sqlite_path is required for the sqlite store", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown preferences.store %q", ErrInvalid, c.Preferences.Store)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.sample_ratio must be within [0,1]", ErrInvalid)
	}
	return nil
}
