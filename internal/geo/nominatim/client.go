// Package nominatim forward and reverse geocodes through an OpenStreetMap
// Nominatim instance.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent is sent with every request per the Nominatim usage policy.
	DefaultUserAgent = "airwatch/1.0"

	// maxDisplayName is the truncation length for long display names.
	maxDisplayName = 50
)

var (
	// ErrEmptyQuery is returned for a blank search query.
	ErrEmptyQuery = errors.New("Please enter a location to search") //nolint:stylecheck // shown to users verbatim

	// ErrNoResults is returned when a search matched nothing.
	ErrNoResults = errors.New("No locations found") //nolint:stylecheck // shown to users verbatim
)

// Address holds the address components used for place names.
type Address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	County  string `json:"county"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Locality returns the first of city, town, village, county.
func (a Address) Locality() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.County} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Place is a geocoding result.
type Place struct {
	Name        string
	DisplayName string
	Coordinate  geo.Coordinate
	Address     Address
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *resilience.Client
	Logger     zerolog.Logger
}

// Client is a Nominatim API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{baseURL: baseURL, userAgent: ua, httpClient: httpClient, logger: cfg.Logger}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Search forward-geocodes a free-text query into at most five candidates.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "5")
	q.Set("addressdetails", "1")

	var results []placeResponse
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		p, err := r.toPlace()
		if err != nil {
			c.logger.Debug().Err(err).Str("display_name", r.DisplayName).Msg("skipping unparsable search result")
			continue
		}
		places = append(places, p)
	}
	if len(places) == 0 {
		return nil, ErrNoResults
	}
	return places, nil
}

// Reverse geocodes a coordinate. A response without display_name yields a
// *geo.UpstreamDataError.
func (c *Client) Reverse(ctx context.Context, coord geo.Coordinate) (*Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	var r placeResponse
	if err := c.get(ctx, "/reverse", q, &r); err != nil {
		return nil, err
	}
	if r.DisplayName == "" {
		return nil, &geo.UpstreamDataError{Provider: ProviderName, Field: "display_name"}
	}

	p, err := r.toPlace()
	if err != nil {
		p = Place{DisplayName: r.DisplayName, Address: r.Address}
	}
	p.Coordinate = coord
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("unexpected status from nominatim")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// PlaceName formats a place for display: "city, state, country",
// "city, country", or the display name truncated to 50 characters.
func PlaceName(p Place) string {
	a := p.Address
	city := a.Locality()
	switch {
	case city != "" && a.State != "" && a.Country != "":
		return city + ", " + a.State + ", " + a.Country
	case city != "" && a.Country != "":
		return city + ", " + a.Country
	case utf8.RuneCountInString(p.DisplayName) > maxDisplayName:
		return string([]rune(p.DisplayName)[:maxDisplayName]) + "..."
	default:
		return p.DisplayName
	}
}

type placeResponse struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Address     Address `json:"address"`
}

func (r placeResponse) toPlace() (Place, error) {
	coord, err := geo.ParseCoordinate(r.Lat, r.Lon)
	if err != nil {
		return Place{}, err
	}

	name := r.Name
	if name == "" {
		name = strings.TrimSpace(strings.Split(r.DisplayName, ",")[0])
	}
	return Place{
		Name:        name,
		DisplayName: r.DisplayName,
		Coordinate:  coord,
		Address:     r.Address,
	}, nil
}
