package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/geo/nominatim"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/suggestion"
	"github.com/breatheroute/airwatch/internal/telemetry"
)

const tracerName = "github.com/breatheroute/airwatch/internal/dashboard"

const (
	// LoadZoom is the map zoom used when a cycle recenters the map.
	LoadZoom = 11

	// NoSuggestionText is used when the backend answers with an empty suggestion.
	NoSuggestionText = "No suggestions available"

	placeNameTimeout = 15 * time.Second
)

// Fetcher retrieves the aggregate payload for a coordinate.
type Fetcher interface {
	Fetch(ctx context.Context, coord geo.Coordinate) (*aggregate.Payload, error)
}

// Suggester returns AI suggestion text, or canned text with fallback set.
type Suggester interface {
	SuggestOrFallback(ctx context.Context, p *aggregate.Payload) (text string, fallback bool)
}

// PlaceResolver reverse-geocodes a coordinate.
type PlaceResolver interface {
	Reverse(ctx context.Context, coord geo.Coordinate) (*nominatim.Place, error)
}

// CycleRecorder records refresh cycle outcomes.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, outcome string, d time.Duration)
}

// State is the current location state shared by every surface.
type State struct {
	Coordinate geo.Coordinate
	Payload    *aggregate.Payload
	PlaceName  string
	Chart      ChartSeries
	Cards      []suggestion.Card
	UpdatedAt  time.Time
}

// Config holds configuration for the dashboard.
type Config struct {
	Fetcher Fetcher
	View    ViewPort

	// Places resolves the top-bar place name (optional).
	Places PlaceResolver

	// Suggester provides AI text (optional). Without it every cycle uses
	// suggestion.FallbackText.
	Suggester Suggester

	// Generator builds suggestion cards (optional, defaults to the wall clock).
	Generator *suggestion.Generator

	// Status receives status lines and debug output (optional).
	Status status.Sink

	// Metrics records cycle outcomes (optional).
	Metrics CycleRecorder

	Logger zerolog.Logger
	Now    func() time.Time
}

// Dashboard runs refresh cycles. Cycles are not serialized: concurrent loads
// race and the last one to finish wins.
type Dashboard struct {
	fetcher   Fetcher
	view      ViewPort
	places    PlaceResolver
	suggester Suggester
	generator *suggestion.Generator
	status    status.Sink
	metrics   CycleRecorder
	logger    zerolog.Logger
	now       func() time.Time
	tracer    trace.Tracer

	mu    sync.RWMutex
	state State

	placeTasks sync.WaitGroup
}

// New creates a dashboard.
func New(cfg Config) *Dashboard {
	sink := cfg.Status
	if sink == nil {
		sink = status.Nop{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	gen := cfg.Generator
	if gen == nil {
		gen = suggestion.NewGenerator(suggestion.GeneratorConfig{Now: now})
	}

	return &Dashboard{
		fetcher:   cfg.Fetcher,
		view:      cfg.View,
		places:    cfg.Places,
		suggester: cfg.Suggester,
		generator: gen,
		status:    sink,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       now,
		tracer:    otel.Tracer(tracerName),
	}
}

// Load runs one refresh cycle for coord. On failure no surface other than the
// status line and the error view is touched, and the error is returned.
func (d *Dashboard) Load(ctx context.Context, coord geo.Coordinate) error {
	ctx, span := d.tracer.Start(ctx, "dashboard.Load", trace.WithAttributes(
		attribute.Float64("geo.lat", coord.Lat),
		attribute.Float64("geo.lon", coord.Lon),
	))
	defer span.End()

	start := d.now()
	d.status.Debug("🔍 Starting load...")
	d.status.SetStatus("Loading...")

	if err := coord.Validate(); err != nil {
		d.fail(ctx, span, err, start)
		return err
	}

	d.status.Debug(fmt.Sprintf("🔍 Fetching aggregate for %s", coord))
	payload, err := d.fetcher.Fetch(ctx, coord)
	if err != nil {
		d.fail(ctx, span, err, start)
		return err
	}

	d.view.CenterMap(coord, LoadZoom)
	d.view.SetMarker(Marker{Coordinate: coord})

	d.view.ClearZoneOverlay()
	if zone, badge, ok := BuildZone(coord, payload); ok {
		d.view.SetZoneOverlay(zone)
		d.view.SetMarker(badge)
	}

	chart := BuildChartData(payload.RealtimeAQI, payload.DailyAQI)
	d.view.SetChartSeries(chart)

	d.view.SetPollutantPanel(BuildPollutantPanel(payload))
	d.view.SetWeatherWidget(BuildWeatherWidget(payload.WeatherCondition))

	d.resolvePlaceName(ctx, coord)

	updated := d.now()
	d.view.SetLastUpdated(updated)

	text, fallback := d.suggest(ctx, payload)
	cards := d.generator.Generate(payload, text)
	d.view.SetSuggestionCards(cards)

	d.mu.Lock()
	d.state.Coordinate = coord
	d.state.Payload = payload
	d.state.Chart = chart
	d.state.Cards = cards
	d.state.UpdatedAt = updated
	d.mu.Unlock()

	stamp := updated.Format(time.TimeOnly)
	outcome := telemetry.OutcomeSuccess
	if fallback {
		outcome = telemetry.OutcomeHeuristic
		d.status.SetStatus("Loaded with heuristic suggestion at " + stamp)
	} else {
		d.status.SetStatus("Loaded successfully at " + stamp)
	}
	d.record(ctx, outcome, start)

	d.logger.Info().
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Int("cards", len(cards)).
		Bool("fallback", fallback).
		Msg("refresh cycle complete")

	return nil
}

func (d *Dashboard) suggest(ctx context.Context, p *aggregate.Payload) (string, bool) {
	if d.suggester == nil {
		return suggestion.FallbackText, true
	}
	text, fallback := d.suggester.SuggestOrFallback(ctx, p)
	if !fallback && text == "" {
		text = NoSuggestionText
	}
	return text, fallback
}

// resolvePlaceName looks the place name up without blocking the cycle. The
// last lookup to finish wins.
func (d *Dashboard) resolvePlaceName(ctx context.Context, coord geo.Coordinate) {
	if d.places == nil {
		d.setPlaceName(ShortenPlaceName(geo.CoordinateLabel(coord)))
		return
	}

	d.placeTasks.Add(1)
	go func() {
		defer d.placeTasks.Done()

		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), placeNameTimeout)
		defer cancel()

		place, err := d.places.Reverse(lookupCtx, coord)
		if err != nil {
			d.logger.Debug().Err(err).Msg("reverse geocoding failed")
			d.setPlaceName(geo.ShortLabel(coord))
			return
		}
		d.setPlaceName(ShortenPlaceName(nominatim.PlaceName(*place)))
	}()
}

func (d *Dashboard) setPlaceName(name string) {
	d.mu.Lock()
	d.state.PlaceName = name
	d.mu.Unlock()
	d.view.SetPlaceName(name)
}

func (d *Dashboard) fail(ctx context.Context, span trace.Span, err error, start time.Time) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	d.logger.Error().Err(err).Msg("refresh cycle failed")
	d.status.SetStatus("Failed to load: " + err.Error())
	d.status.Notify(status.KindError, err.Error())
	d.view.ShowError(LoadError{
		Message: err.Error(),
		Kind:    ErrorKind(err),
		At:      d.now(),
	})
	d.record(ctx, telemetry.OutcomeError, start)
}

func (d *Dashboard) record(ctx context.Context, outcome string, start time.Time) {
	if d.metrics != nil {
		d.metrics.RecordCycle(ctx, outcome, d.now().Sub(start))
	}
}

// ErrorKind names the error taxonomy entry err belongs to.
func ErrorKind(err error) string {
	var netErr *aggregate.NetworkError
	var valErr *geo.ValidationError
	var geoErr *geo.GeolocationError
	var upErr *geo.UpstreamDataError
	switch {
	case errors.As(err, &netErr):
		return "NetworkError"
	case errors.As(err, &valErr):
		return "ValidationError"
	case errors.As(err, &geoErr):
		return "GeolocationError"
	case errors.As(err, &upErr):
		return "UpstreamDataError"
	default:
		return "Error"
	}
}

// State returns a copy of the current state.
func (d *Dashboard) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.state
	s.Cards = append([]suggestion.Card(nil), d.state.Cards...)
	return s
}

// Wait blocks until pending place-name lookups finish.
func (d *Dashboard) Wait() {
	d.placeTasks.Wait()
}
