// Package main provides the remote dashboard worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/assistant"
	"github.com/breatheroute/airwatch/internal/config"
	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/geo/nominatim"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
	"github.com/breatheroute/airwatch/internal/scheduler"
	"github.com/breatheroute/airwatch/internal/telemetry"
	"github.com/breatheroute/airwatch/internal/view/mqttview"
	"github.com/breatheroute/airwatch/internal/weather"
	"github.com/breatheroute/airwatch/internal/weather/openweathermap"
	"github.com/breatheroute/airwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// cacheRefreshInterval keeps warmed entries inside the weather cache TTL.
const cacheRefreshInterval = 9 * time.Minute

func main() {
	const serviceName = "airwatch-worker"

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

	log.Info().Str("build_time", BuildTime).Msg("starting AirWatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Upstream data, aggregated in-process.
	owmClientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	owmClientCfg.Registry = resilience.GlobalRegistry
	owmClientCfg.Logger = log
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.Providers.OpenWeatherKey,
			BaseURL:    cfg.Providers.OpenWeatherBaseURL,
			HTTPClient: resilience.NewClient(owmClientCfg),
			Logger:     log,
		}),
		Logger: log,
	})
	aggregator := aggregate.NewService(aggregate.ServiceConfig{Weather: weatherService, Logger: log})

	var generator assistant.Generator
	if assistant.HasUsableKey(cfg.Gemini.APIKey) {
		gemini, err := assistant.NewGeminiGenerator(ctx, assistant.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
			Logger: log,
		})
		if err != nil {
			log.Error().Err(err).Msg("gemini unavailable - using heuristic suggestions")
		} else {
			generator = gemini
		}
	}
	assistantService := assistant.NewService(assistant.ServiceConfig{Generator: generator, Logger: log})

	// Remote display.
	mqttClient := mqttview.NewClient(mqttview.ClientConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Logger:   log,
	})
	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := mqttClient.Connect(connectCtx); err != nil {
		log.Error().Err(err).Str("broker", cfg.MQTT.Broker).Msg("mqtt broker unreachable, will keep retrying")
	}
	connectCancel()
	defer mqttClient.Disconnect()

	view := mqttview.NewView(mqttview.ViewConfig{Publisher: mqttClient, Prefix: cfg.MQTT.Prefix, Logger: log})

	cycles, err := telemetry.NewRefreshMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("refresh metrics unavailable")
	}
	var recorder dashboard.CycleRecorder
	if cycles != nil {
		recorder = cycles
	}

	dash := dashboard.New(dashboard.Config{
		Fetcher:   worker.LocalFetcher{Aggregator: aggregator},
		View:      view,
		Places:    nominatim.NewClient(nominatim.ClientConfig{BaseURL: cfg.Providers.NominatimBaseURL, UserAgent: cfg.Providers.UserAgent, Logger: log}),
		Suggester: worker.LocalSuggester{Suggester: assistantService},
		Status:    view,
		Metrics:   recorder,
		Logger:    log,
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.DefaultRefreshConfig(),
		Source: weatherService,
		Logger: log,
	})
	warmer := scheduler.NewAutoRefresh(scheduler.AutoRefreshConfig{
		Trigger: func(ctx context.Context) error {
			refreshJob.Run(ctx)
			return nil
		},
		Interval: cacheRefreshInterval,
		Logger:   log,
	})
	warmer.Start(ctx)
	defer warmer.Stop()

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Loader:    dash,
		Refresher: refreshJob,
		Logger:    log,
	})

	if cfg.PubSub.ProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("closing pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - loading the default location once")
		if err := dispatcher.Dispatch(ctx, []byte(`{"job_type":"`+worker.JobHealthCheck+`"}`)); err != nil {
			log.Error().Err(err).Msg("initial load failed")
		}
	}

	// Health endpoint for the container platform.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		state := dash.State()
		body := map[string]any{
			"status":         "healthy",
			"version":        Version,
			"mqtt_connected": mqttClient.IsConnected(),
			"last_load":      state.UpdatedAt,
			"cache":          weatherService.CacheStats(),
			"cache_refresh":  refreshJob.MetricsSnapshot(),
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Error().Err(err).Msg("encoding health response")
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()
	dash.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
