package weather

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather and air pollution data providers.
type Provider interface {
	// GetCurrentWeather fetches current weather for a location.
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)

	// GetWeatherByCity fetches current weather for a free-text city name.
	GetWeatherByCity(ctx context.Context, city string) (*Observation, error)

	// GetAirPollution fetches the current air pollution reading.
	GetAirPollution(ctx context.Context, lat, lon float64) (*AirPollution, error)

	// GetAirPollutionForecast fetches the hourly air pollution forecast.
	GetAirPollutionForecast(ctx context.Context, lat, lon float64) (*AirPollution, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the upstream data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache upstream data (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service provides weather and air pollution data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu              sync.Mutex
	weatherCache    map[string]*cached[*Observation]
	pollutionCache  map[string]*cached[*AirPollution]
	forecastCache   map[string]*cached[*AirPollution]
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cached[T any] struct {
	value     T
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.01 // ~1km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		weatherCache:    make(map[string]*cached[*Observation]),
		pollutionCache:  make(map[string]*cached[*AirPollution]),
		forecastCache:   make(map[string]*cached[*AirPollution]),
		cleanupInterval: 5 * time.Minute,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// GetCurrentWeather returns current weather for a location.
func (s *Service) GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return fetchCached(ctx, s, s.weatherCache, "weather", lat, lon, s.provider.GetCurrentWeather, nil)
}

// GetAirPollution returns the current air pollution reading for a location.
func (s *Service) GetAirPollution(ctx context.Context, lat, lon float64) (*AirPollution, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return fetchCached(ctx, s, s.pollutionCache, "air_pollution", lat, lon, s.provider.GetAirPollution, (*AirPollution).Empty)
}

// GetAirPollutionForecast returns the air pollution forecast for a location.
// Empty forecasts are returned but never cached, so a retry reaches the provider.
func (s *Service) GetAirPollutionForecast(ctx context.Context, lat, lon float64) (*AirPollution, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return fetchCached(ctx, s, s.forecastCache, "air_pollution_forecast", lat, lon, s.provider.GetAirPollutionForecast, (*AirPollution).Empty)
}

// GetWeatherByCity looks up current weather by city name. Results are not cached.
func (s *Service) GetWeatherByCity(ctx context.Context, city string) (*Observation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}

	obs, err := s.provider.GetWeatherByCity(ctx, city)
	if err != nil {
		s.logger.Error().Err(err).
			Str("city", city).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch weather by city")
		return nil, ErrProviderUnavailable
	}
	return obs, nil
}

// fetchCached serves fresh cache entries, fetches otherwise, and falls back to
// stale entries on provider errors. skip reports values that must not be cached.
func fetchCached[T any](
	ctx context.Context,
	s *Service,
	cache map[string]*cached[T],
	kind string,
	lat, lon float64,
	fetch func(context.Context, float64, float64) (T, error),
	skip func(T) bool,
) (T, error) {
	key := s.cacheKey(lat, lon)

	s.mu.Lock()
	if c, ok := cache[key]; ok && time.Now().Before(c.expiresAt) {
		s.mu.Unlock()
		return c.value, nil
	}
	s.mu.Unlock()

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("kind", kind).
		Str("provider", s.provider.Name()).
		Msg("fetching from provider")

	value, err := fetch(ctx, lat, lon)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("kind", kind).
			Msg("provider fetch failed")

		if c, ok := cache[key]; ok && time.Now().Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", c.fetchedAt).
				Str("kind", kind).
				Msg("serving stale data due to provider error")
			return c.value, nil
		}

		var zero T
		return zero, fmt.Errorf("%w: %s", ErrProviderUnavailable, kind)
	}

	if skip == nil || !skip(value) {
		now := time.Now()
		cache[key] = &cached[T]{
			value:     value,
			fetchedAt: now,
			expiresAt: now.Add(s.cacheTTL),
		}
	}

	s.cleanupIfNeeded()

	return value, nil
}

// cacheKey groups nearby points into grid cells.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.4f:%.4f", gridLat, gridLon)
}

// cleanupIfNeeded removes entries past the stale window. Callers hold s.mu.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := evict(s.weatherCache, now, s.staleIfErrorTTL) +
		evict(s.pollutionCache, now, s.staleIfErrorTTL) +
		evict(s.forecastCache, now, s.staleIfErrorTTL)

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

func evict[T any](cache map[string]*cached[T], now time.Time, staleTTL time.Duration) int {
	n := 0
	for key, c := range cache {
		if now.After(c.fetchedAt.Add(staleTTL)) {
			delete(cache, key)
			n++
		}
	}
	return n
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.weatherCache)
	clear(s.pollutionCache)
	clear(s.forecastCache)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CacheStats{
		WeatherEntries:   len(s.weatherCache),
		PollutionEntries: len(s.pollutionCache),
		ForecastEntries:  len(s.forecastCache),
		Provider:         s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	WeatherEntries   int
	PollutionEntries int
	ForecastEntries  int
	Provider         string
}

// validateCoordinates checks if coordinates are valid.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
