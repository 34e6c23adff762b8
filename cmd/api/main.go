// Package main provides the entrypoint for the AirWatch backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/api"
	"github.com/breatheroute/airwatch/internal/api/handler"
	"github.com/breatheroute/airwatch/internal/api/middleware"
	"github.com/breatheroute/airwatch/internal/assistant"
	"github.com/breatheroute/airwatch/internal/config"
	"github.com/breatheroute/airwatch/internal/database"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/preferences"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
	"github.com/breatheroute/airwatch/internal/telemetry"
	"github.com/breatheroute/airwatch/internal/weather"
	"github.com/breatheroute/airwatch/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airwatch-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting AirWatch API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	registry := resilience.NewRegistry()

	// Upstream providers.
	if !assistant.HasUsableKey(cfg.Providers.OpenWeatherKey) {
		log.Warn().Msg("OPENWEATHER_KEY not set - weather and pollution sections will be empty")
	}
	owmClientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	owmClientCfg.Registry = registry
	owmClientCfg.Logger = log
	owm := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     cfg.Providers.OpenWeatherKey,
		BaseURL:    cfg.Providers.OpenWeatherBaseURL,
		HTTPClient: resilience.NewClient(owmClientCfg),
		Logger:     log,
	})
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: owm,
		Logger:   log,
	})

	ipClientCfg := resilience.DefaultClientConfig(geo.IPAPIProviderName)
	ipClientCfg.Registry = registry
	ipClientCfg.Logger = log
	ipLocator := geo.NewIPLocator(geo.IPLocatorConfig{
		URL:        cfg.Providers.IPAPIURL,
		HTTPClient: resilience.NewClient(ipClientCfg),
		Logger:     log,
	})

	aggregator := aggregate.NewService(aggregate.ServiceConfig{
		Weather: weatherService,
		Logger:  log,
	})

	var generator assistant.Generator
	if assistant.HasUsableKey(cfg.Gemini.APIKey) {
		gemini, err := assistant.NewGeminiGenerator(ctx, assistant.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
			Logger: log,
		})
		if err != nil {
			log.Error().Err(err).Msg("gemini unavailable - using heuristic answers")
		} else {
			generator = gemini
			log.Info().Str("model", cfg.Gemini.Model).Msg("gemini assistant initialized")
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - using heuristic answers")
	}
	assistantService := assistant.NewService(assistant.ServiceConfig{
		Generator: generator,
		Logger:    log,
	})

	repo, closeRepo, checks, err := openPreferenceStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Preferences.Store).Msg("failed to open preference store")
	}
	defer closeRepo()
	layouts := preferences.NewService(preferences.ServiceConfig{
		Repository: repo,
		Logger:     log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  cfg.App.Env == "production",
		Aggregator:  aggregator,
		Assistant:   assistantService,
		Weather:     weatherService,
		IPLookup:    ipLocator,
		Layouts:     layouts,
		Registry:    registry,
		Subsystems:  checks,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      http.TimeoutHandler(router, cfg.App.RequestTimeout, ""),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// openPreferenceStore opens the configured layout store and returns the
// subsystem checks reported by /ops/status.
func openPreferenceStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (preferences.Repository, func(), []handler.SubsystemCheck, error) {
	switch cfg.Preferences.Store {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		repo := preferences.NewPostgresRepository(pool, cfg.Preferences.Owner)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
		checks := []handler.SubsystemCheck{
			{Name: "database", Check: pool.Ping},
			{Name: "preferences", Check: storeCheck(repo)},
		}
		return repo, pool.Close, checks, nil

	case config.StoreSQLite:
		repo, err := preferences.OpenSQLite(ctx, cfg.Preferences.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("path", cfg.Preferences.SQLitePath).Msg("sqlite preference store opened")
		closeFn := func() {
			if err := repo.Close(); err != nil {
				log.Error().Err(err).Msg("closing preference store")
			}
		}
		return repo, closeFn, []handler.SubsystemCheck{{Name: "preferences", Check: storeCheck(repo)}}, nil

	default:
		log.Warn().Msg("using in-memory preference store - layouts are lost on restart")
		repo := preferences.NewInMemoryRepository()
		return repo, func() {}, []handler.SubsystemCheck{{Name: "preferences", Check: storeCheck(repo)}}, nil
	}
}

func storeCheck(repo preferences.Repository) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := repo.Get(ctx, preferences.LayoutKey)
		if errors.Is(err, preferences.ErrNotFound) {
			return nil
		}
		return err
	}
}
