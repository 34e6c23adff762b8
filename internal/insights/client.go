// Package insights calls the backend's model and satellite endpoints. Their
// responses have no fixed shape and are kept as raw JSON.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// DefaultModel is the model name sent to the prediction endpoints.
const DefaultModel = "random_forest"

// ErrUnknownKind is returned for an insight name that has no endpoint.
var ErrUnknownKind = errors.New("unknown insight")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type builder func(c geo.Coordinate, model string) Request

var catalog = map[string]builder{
	"train": func(geo.Coordinate, string) Request {
		return Request{
			Method: http.MethodPost,
			Path:   "/api/ml/train",
			Body: map[string]any{
				"use_synthetic": true,
				"num_samples":   1000,
				"target_column": "aqi",
			},
		}
	},
	"quick-predict": func(c geo.Coordinate, model string) Request {
		q := coordQuery(c)
		q.Set("model", model)
		return Request{Method: http.MethodGet, Path: "/api/ml/quick-predict", Query: q}
	},
	"predict-future": func(_ geo.Coordinate, model string) Request {
		q := url.Values{}
		q.Set("hours", "24")
		q.Set("model", model)
		return Request{Method: http.MethodGet, Path: "/api/ml/predict-future", Query: q}
	},
	"nasa/comprehensive": nasa("comprehensive", ""),
	"nasa/aerosol":       nasa("aerosol", "7"),
	"nasa/fires":         nasa("fires", "7"),
	"nasa/precipitation": nasa("precipitation", "3"),
	"nasa/7day-forecast": nasa("7day-forecast", ""),
	"nasa/24hour-hourly": nasa("24hour-hourly", ""),
	"tempo/load-existing": func(geo.Coordinate, string) Request {
		return Request{Method: http.MethodPost, Path: "/api/tempo/load-existing"}
	},
	"tempo/train-model": func(_ geo.Coordinate, model string) Request {
		q := url.Values{}
		q.Set("model", model)
		q.Set("grid_size", "0.1")
		return Request{Method: http.MethodPost, Path: "/api/tempo/train-model", Query: q}
	},
	"tempo/predict": func(c geo.Coordinate, model string) Request {
		q := coordQuery(c)
		q.Set("model", model)
		return Request{Method: http.MethodGet, Path: "/api/tempo/predict", Query: q}
	},
}

func nasa(path, days string) builder {
	return func(c geo.Coordinate, _ string) Request {
		q := coordQuery(c)
		if days != "" {
			q.Set("days", days)
		}
		return Request{Method: http.MethodGet, Path: "/api/nasa/" + path, Query: q}
	}
}

func coordQuery(c geo.Coordinate) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	return q
}

// Kinds lists the known insight names, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ClientConfig holds configuration for the insights client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *resilience.Client

	// Model overrides DefaultModel.
	Model string

	Logger zerolog.Logger
}

// Client calls the insight endpoints.
type Client struct {
	baseURL    string
	model      string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates an insights client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig("backend-insights")
		clientCfg.MaxRetries = 0
		httpClient = resilience.NewClient(clientCfg)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Fetch runs the named insight for c.
func (c *Client) Fetch(ctx context.Context, kind string, coord geo.Coordinate) (json.RawMessage, error) {
	build, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return c.Do(ctx, build(coord, c.model))
}

// Do executes r and returns the response body.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	reqURL := c.baseURL + r.Path
	if len(r.Query) > 0 {
		reqURL += "?" + r.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Str("path", r.Path).Int("status", resp.StatusCode).Msg("insight request failed")
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("decoding response: invalid JSON")
	}
	return json.RawMessage(raw), nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

// Render indents raw for display. Invalid JSON is returned unchanged.
func Render(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
