package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

const (
	// IPAPIProviderName identifies the IP geolocation provider.
	IPAPIProviderName = "ipapi"

	// DefaultIPAPIURL is the ipapi.co lookup for the caller's own address.
	DefaultIPAPIURL = "https://ipapi.co/json/"

	// ipAccuracy is the nominal accuracy reported for IP-derived positions.
	ipAccuracy = 5000
)

// IPLookup is an IP geolocation result.
type IPLookup struct {
	IP         string
	City       string
	Coordinate Coordinate
	Raw        json.RawMessage
}

// IPLocatorConfig holds configuration for the IP locator.
type IPLocatorConfig struct {
	// URL overrides DefaultIPAPIURL.
	URL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// IPLocator locates the caller from its public IP address via ipapi.co.
type IPLocator struct {
	url        string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewIPLocator creates an IP locator.
func NewIPLocator(cfg IPLocatorConfig) *IPLocator {
	u := cfg.URL
	if u == "" {
		u = DefaultIPAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(IPAPIProviderName))
	}
	return &IPLocator{url: u, httpClient: httpClient, logger: cfg.Logger}
}

// Locate implements Locator.
func (l *IPLocator) Locate(ctx context.Context) (Position, error) {
	res, err := l.Lookup(ctx)
	if err != nil {
		return Position{}, err
	}
	return Position{Coordinate: res.Coordinate, Accuracy: ipAccuracy}, nil
}

// Lookup performs the raw IP geolocation request.
func (l *IPLocator) Lookup(ctx context.Context) (*IPLookup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		l.logger.Warn().Int("status", resp.StatusCode).Msg("unexpected status from ipapi")
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var parsed struct {
		IP        string   `json:"ip"`
		City      string   `json:"city"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Latitude == nil || parsed.Longitude == nil {
		return nil, &UpstreamDataError{Provider: IPAPIProviderName, Field: "latitude/longitude"}
	}

	return &IPLookup{
		IP:         parsed.IP,
		City:       parsed.City,
		Coordinate: Coordinate{Lat: *parsed.Latitude, Lon: *parsed.Longitude},
		Raw:        json.RawMessage(body),
	}, nil
}

// StaticLocator always returns the same position. Manual input and the
// -lat/-lon flags use it.
type StaticLocator struct {
	Position Position
}

// Locate implements Locator.
func (s StaticLocator) Locate(context.Context) (Position, error) {
	return s.Position, nil
}

// ChainLocator tries each locator in order and returns the first success.
type ChainLocator []Locator

// Locate implements Locator. With every locator failing, the errors are joined.
func (c ChainLocator) Locate(ctx context.Context) (Position, error) {
	if len(c) == 0 {
		return Position{}, ErrUnsupported
	}

	var errs []error
	for _, l := range c {
		pos, err := l.Locate(ctx)
		if err == nil {
			return pos, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Position{}, errors.Join(errs...)
}
