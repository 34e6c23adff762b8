package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/status"
)

// DefaultLocationStatus is shown whenever the default coordinate is used.
const DefaultLocationStatus = "🏢 Using default location: Delhi, India"

// Position is a located coordinate with its accuracy radius in meters.
type Position struct {
	Coordinate Coordinate
	Accuracy   float64
	Timestamp  time.Time
}

// Locator obtains the device position.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// Source says where a resolved coordinate came from.
type Source string

// Resolution sources.
const (
	SourceLocator Source = "locator"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// Resolution is the outcome of Resolve. Err is set when the default was used
// because the locator failed.
type Resolution struct {
	Coordinate Coordinate
	Zoom       int
	Accuracy   float64
	Source     Source
	Err        *GeolocationError
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	// Locator is asked for a position. Nil means geolocation is unsupported.
	Locator Locator

	// Status receives progress and outcome messages.
	Status status.Sink

	Logger zerolog.Logger

	// Timeout bounds a locator call (default: 10 seconds).
	Timeout time.Duration

	// MaxAge is how long a previous fix is reused (default: 5 minutes).
	MaxAge time.Duration

	// Now overrides the wall clock (tests).
	Now func() time.Time
}

// Resolver turns a Locator into a coordinate that is always usable.
type Resolver struct {
	locator Locator
	status  status.Sink
	logger  zerolog.Logger
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last *Position
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 5 * time.Minute
	}
	sink := cfg.Status
	if sink == nil {
		sink = status.Nop{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		locator: cfg.Locator,
		status:  sink,
		logger:  cfg.Logger,
		timeout: timeout,
		maxAge:  maxAge,
		now:     now,
	}
}

// Resolve makes a single attempt to locate the device and falls back to
// Default on any failure. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	if r.locator == nil {
		return r.fallback(&GeolocationError{Code: Unsupported, Err: ErrUnsupported})
	}

	if pos, ok := r.cached(); ok {
		r.detected(pos)
		return Resolution{Coordinate: pos.Coordinate, Zoom: DetectedZoom, Accuracy: pos.Accuracy, Source: SourceCache}
	}

	r.status.SetStatus("🔍 Detecting your location...")

	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pos, err := r.locator.Locate(lctx)
	if err == nil {
		err = pos.Coordinate.Validate()
	}
	if err != nil {
		return r.fallback(classify(lctx, err))
	}

	if pos.Timestamp.IsZero() {
		pos.Timestamp = r.now()
	}
	r.mu.Lock()
	r.last = &pos
	r.mu.Unlock()

	r.logger.Info().
		Float64("lat", pos.Coordinate.Lat).
		Float64("lon", pos.Coordinate.Lon).
		Float64("accuracy_m", pos.Accuracy).
		Msg("location detected")
	r.detected(pos)

	return Resolution{Coordinate: pos.Coordinate, Zoom: DetectedZoom, Accuracy: pos.Accuracy, Source: SourceLocator}
}

func (r *Resolver) cached() (Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil || r.now().Sub(r.last.Timestamp) > r.maxAge {
		return Position{}, false
	}
	return *r.last, true
}

func (r *Resolver) detected(pos Position) {
	text := fmt.Sprintf("📍 Location detected! Accuracy: ±%.0fm", pos.Accuracy)
	r.status.SetStatus(text)
	r.status.Notify(status.KindSuccess, text)
}

func (r *Resolver) fallback(gerr *GeolocationError) Resolution {
	r.logger.Warn().Err(gerr).Str("code", string(gerr.Code)).Msg("geolocation failed, using default")
	r.status.SetStatus(gerr.StatusText())
	r.status.Notify(status.KindError, gerr.StatusText())
	r.status.Debug(gerr.Error())
	r.status.SetStatus(DefaultLocationStatus)
	r.status.Notify(status.KindInfo, DefaultLocationStatus)

	return Resolution{Coordinate: Default, Zoom: DefaultZoom, Source: SourceDefault, Err: gerr}
}

// classify maps a locator error onto a geolocation error code.
func classify(ctx context.Context, err error) *GeolocationError {
	var gerr *GeolocationError
	switch {
	case errors.As(err, &gerr):
		return gerr
	case errors.Is(err, ErrUnsupported):
		return &GeolocationError{Code: Unsupported, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &GeolocationError{Code: Timeout, Err: err}
	default:
		return &GeolocationError{Code: PositionUnavailable, Err: err}
	}
}
