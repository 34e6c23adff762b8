// Package openweathermap implements weather.Provider against the OpenWeatherMap
// current weather and air pollution APIs.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
	"github.com/breatheroute/airwatch/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather fetches current weather for a location.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	q := coordQuery(lat, lon)
	q.Set("units", "metric")

	var resp currentWeatherResponse
	if err := c.get(ctx, "/weather", q, &resp); err != nil {
		return nil, err
	}
	return toObservation(&resp), nil
}

// GetWeatherByCity fetches current weather for a city name.
func (c *Client) GetWeatherByCity(ctx context.Context, city string) (*weather.Observation, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")

	var resp currentWeatherResponse
	if err := c.get(ctx, "/weather", q, &resp); err != nil {
		return nil, err
	}
	return toObservation(&resp), nil
}

// GetAirPollution fetches the current air pollution reading.
func (c *Client) GetAirPollution(ctx context.Context, lat, lon float64) (*weather.AirPollution, error) {
	var resp airPollutionResponse
	if err := c.get(ctx, "/air_pollution", coordQuery(lat, lon), &resp); err != nil {
		return nil, err
	}
	return toAirPollution(&resp, lat, lon), nil
}

// GetAirPollutionForecast fetches the hourly air pollution forecast.
func (c *Client) GetAirPollutionForecast(ctx context.Context, lat, lon float64) (*weather.AirPollution, error) {
	var resp airPollutionResponse
	if err := c.get(ctx, "/air_pollution/forecast", coordQuery(lat, lon), &resp); err != nil {
		return nil, err
	}
	return toAirPollution(&resp, lat, lon), nil
}

func coordQuery(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("appid", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("unexpected status from openweathermap")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// toObservation converts an OpenWeatherMap response to the domain model.
func toObservation(resp *currentWeatherResponse) *weather.Observation {
	obs := &weather.Observation{
		Lat:         resp.Coord.Lat,
		Lon:         resp.Coord.Lon,
		City:        resp.Name,
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		Visibility:  resp.Visibility,
		ObservedAt:  time.Unix(resp.Dt, 0),
		FetchedAt:   time.Now(),
	}

	if len(resp.Weather) > 0 {
		w := resp.Weather[0]
		obs.HasCondition = true
		obs.Main = w.Main
		obs.Description = w.Description
		obs.Icon = w.Icon
	}

	return obs
}

// toAirPollution converts an air pollution response to the domain model.
func toAirPollution(resp *airPollutionResponse, lat, lon float64) *weather.AirPollution {
	ap := &weather.AirPollution{
		Lat:       lat,
		Lon:       lon,
		Samples:   make([]weather.AirPollutionSample, 0, len(resp.List)),
		FetchedAt: time.Now(),
	}
	if resp.Coord != nil {
		ap.Lat = resp.Coord.Lat
		ap.Lon = resp.Coord.Lon
	}

	for _, item := range resp.List {
		sample := weather.AirPollutionSample{
			Time:       time.Unix(item.Dt, 0),
			Index:      item.Main.AQI,
			Components: make(map[airquality.Pollutant]float64, len(item.Components)),
		}
		for k, v := range item.Components {
			sample.Components[airquality.Pollutant(k)] = v
		}
		ap.Samples = append(ap.Samples, sample)
	}

	return ap
}

// OpenWeatherMap API response structures.

type currentWeatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Pressure  *float64 `json:"pressure"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}

type airPollutionResponse struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}
