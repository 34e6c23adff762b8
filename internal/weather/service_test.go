package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu            sync.Mutex
	calls         map[string]int
	emptyForecast bool
	err           error
}

func newMockProvider() *mockProvider {
	return &mockProvider{calls: make(map[string]int)}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) record(kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[kind]++
	return m.err
}

func (m *mockProvider) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	if err := m.record("weather"); err != nil {
		return nil, err
	}
	temp := 20.0
	return &weather.Observation{
		Lat:          lat,
		Lon:          lon,
		Temperature:  &temp,
		HasCondition: true,
		Main:         "Clear",
		Icon:         "01d",
		ObservedAt:   time.Now(),
		FetchedAt:    time.Now(),
	}, nil
}

func (m *mockProvider) GetWeatherByCity(_ context.Context, city string) (*weather.Observation, error) {
	if err := m.record("city"); err != nil {
		return nil, err
	}
	return &weather.Observation{City: city}, nil
}

func (m *mockProvider) GetAirPollution(_ context.Context, lat, lon float64) (*weather.AirPollution, error) {
	if err := m.record("pollution"); err != nil {
		return nil, err
	}
	return &weather.AirPollution{
		Lat: lat,
		Lon: lon,
		Samples: []weather.AirPollutionSample{{
			Time:       time.Now(),
			Index:      3,
			Components: map[airquality.Pollutant]float64{airquality.PollutantPM25: 40},
		}},
	}, nil
}

func (m *mockProvider) GetAirPollutionForecast(_ context.Context, lat, lon float64) (*weather.AirPollution, error) {
	if err := m.record("forecast"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	empty := m.emptyForecast
	m.mu.Unlock()

	ap := &weather.AirPollution{Lat: lat, Lon: lon}
	if !empty {
		ap.Samples = []weather.AirPollutionSample{{Time: time.Now(), Index: 2}}
	}
	return ap, nil
}

func (m *mockProvider) callCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newTestService(provider weather.Provider) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})
}

func TestService_GetCurrentWeather(t *testing.T) {
	service := newTestService(newMockProvider())

	obs, err := service.GetCurrentWeather(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 28.6139, obs.Lat)
	require.NotNil(t, obs.Temperature)
	assert.Equal(t, 20.0, *obs.Temperature)
	assert.Equal(t, "Clear", obs.Main)
}

func TestService_GetCurrentWeather_Caching(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider)

	_, err := service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	_, err = service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount("weather"))
}

func TestService_CacheGriding(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		CacheTTL:      5 * time.Minute,
		CacheGridSize: 0.1,
	})

	_, err := service.GetAirPollution(context.Background(), 52.371, 4.891)
	require.NoError(t, err)

	_, err = service.GetAirPollution(context.Background(), 52.375, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount("pollution"))

	_, err = service.GetAirPollution(context.Background(), 52.5, 4.9)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount("pollution"))
}

func TestService_InvalidCoordinates(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider)

	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 91.0, 4.895},
		{"lat too low", -91.0, 4.895},
		{"lon too high", 52.370, 181.0},
		{"lon too low", 52.370, -181.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetCurrentWeather(context.Background(), tt.lat, tt.lon)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)

			_, err = service.GetAirPollutionForecast(context.Background(), tt.lat, tt.lon)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}

	assert.Equal(t, 0, provider.callCount("weather"))
	assert.Equal(t, 0, provider.callCount("forecast"))
}

func TestService_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))
	service := newTestService(provider)

	_, err := service.GetAirPollution(context.Background(), 52.370, 4.895)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_StaleOnError(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        50 * time.Millisecond,
		StaleIfErrorTTL: 1 * time.Hour,
	})

	first, err := service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	provider.setError(errors.New("api error"))

	second, err := service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 2, provider.callCount("weather"))
}

func TestService_EmptyForecastNotCached(t *testing.T) {
	provider := newMockProvider()
	provider.emptyForecast = true
	service := newTestService(provider)

	ap, err := service.GetAirPollutionForecast(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)
	assert.True(t, ap.Empty())

	_, err = service.GetAirPollutionForecast(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.callCount("forecast"))
	assert.Equal(t, 0, service.CacheStats().ForecastEntries)
}

func TestService_GetWeatherByCity(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider)

	obs, err := service.GetWeatherByCity(context.Background(), "  Pune ")
	require.NoError(t, err)
	assert.Equal(t, "Pune", obs.City)

	_, err = service.GetWeatherByCity(context.Background(), "   ")
	assert.ErrorIs(t, err, weather.ErrCityRequired)
	assert.Equal(t, 1, provider.callCount("city"))

	provider.setError(errors.New("404"))
	_, err = service.GetWeatherByCity(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider)

	_, err := service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount("weather"))
}

func TestService_CacheStats(t *testing.T) {
	service := newTestService(newMockProvider())

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.WeatherEntries)
	assert.Equal(t, "mock", stats.Provider)

	_, _ = service.GetCurrentWeather(context.Background(), 52.370, 4.895)
	_, _ = service.GetAirPollution(context.Background(), 52.370, 4.895)
	_, _ = service.GetAirPollutionForecast(context.Background(), 52.370, 4.895)

	stats = service.CacheStats()
	assert.Equal(t, 1, stats.WeatherEntries)
	assert.Equal(t, 1, stats.PollutionEntries)
	assert.Equal(t, 1, stats.ForecastEntries)
}
