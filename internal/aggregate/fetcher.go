package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// NetworkError is returned when the backend cannot be reached or answers
// with a non-2xx status.
type NetworkError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("API returned %d: %s - %s", e.StatusCode, e.Status, e.Body)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Snapshot is the last successfully fetched payload.
type Snapshot struct {
	Coordinate geo.Coordinate
	Payload    *Payload
	FetchedAt  time.Time
}

// FetcherConfig holds configuration for the aggregate fetcher.
type FetcherConfig struct {
	// BaseURL is the backend root, e.g. http://localhost:5000.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional). The default never retries.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Fetcher retrieves aggregate payloads from the backend.
type Fetcher struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig("backend")
		clientCfg.MaxRetries = 0
		httpClient = resilience.NewClient(clientCfg)
	}
	return &Fetcher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Fetch retrieves the payload for coord and stores it as the last snapshot.
// Failures leave the previous snapshot in place.
func (f *Fetcher) Fetch(ctx context.Context, coord geo.Coordinate) (*Payload, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))

	var payload Payload
	if err := f.get(ctx, "/api/aggregate?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.last = &Snapshot{Coordinate: coord, Payload: &payload, FetchedAt: time.Now()}
	f.mu.Unlock()

	return &payload, nil
}

// CityWeather is current weather for a searched city.
type CityWeather struct {
	City       string
	Coordinate geo.Coordinate
	Weather    *RawWeather
}

type cityWeatherBody struct {
	City    string `json:"city"`
	Weather struct {
		Name        string   `json:"name"`
		Lat         float64  `json:"lat"`
		Lon         float64  `json:"lon"`
		Main        string   `json:"main"`
		Description string   `json:"description"`
		Icon        string   `json:"icon"`
		Temp        *float64 `json:"temp"`
		Humidity    *float64 `json:"humidity"`
		WindSpeed   *float64 `json:"wind_speed"`
	} `json:"weather"`
}

// FetchCity retrieves current weather for a city name from /api/weather.
// It does not touch the last snapshot.
func (f *Fetcher) FetchCity(ctx context.Context, city string) (*CityWeather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, &geo.ValidationError{Field: "city", Reason: "must not be empty"}
	}

	var body cityWeatherBody
	if err := f.get(ctx, "/api/weather?"+url.Values{"city": {city}}.Encode(), &body); err != nil {
		return nil, err
	}

	coord := geo.Coordinate{Lat: body.Weather.Lat, Lon: body.Weather.Lon}
	if err := coord.Validate(); err != nil {
		return nil, fmt.Errorf("city %q: %w", city, err)
	}

	raw := &RawWeather{Name: body.Weather.Name}
	raw.Main.Temp = body.Weather.Temp
	raw.Main.Humidity = body.Weather.Humidity
	raw.Wind.Speed = body.Weather.WindSpeed
	if body.Weather.Description != "" || body.Weather.Main != "" {
		raw.Weather = []RawCondition{{
			Main:        body.Weather.Main,
			Icon:        body.Weather.Icon,
			Description: body.Weather.Description,
		}}
	}

	return &CityWeather{City: body.City, Coordinate: coord, Weather: raw}, nil
}

func (f *Fetcher) get(ctx context.Context, path string, out any) error {
	reqURL := f.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	f.logger.Debug().Str("url", reqURL).Msg("fetching from backend")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &NetworkError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// Last returns the most recent successful fetch.
func (f *Fetcher) Last() (Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return Snapshot{}, false
	}
	return *f.last, true
}
