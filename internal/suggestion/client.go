package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// FallbackText replaces the AI suggestion whenever it cannot be fetched.
const FallbackText = "AI suggestions temporarily unavailable. Using heuristic analysis."

// ClientConfig holds configuration for the suggestion client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *resilience.Client
	Logger     zerolog.Logger
}

// Client requests AI suggestion text from the backend.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a suggestion client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig("backend-suggest")
		clientCfg.MaxRetries = 0
		httpClient = resilience.NewClient(clientCfg)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Suggest posts the payload to /api/gemini/suggest and returns the text.
func (c *Client) Suggest(ctx context.Context, p *aggregate.Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/gemini/suggest", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out struct {
		Suggestion string `json:"suggestion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Suggestion, nil
}

// SuggestOrFallback returns the AI text, or FallbackText with fallback set
// when the request fails.
func (c *Client) SuggestOrFallback(ctx context.Context, p *aggregate.Payload) (text string, fallback bool) {
	text, err := c.Suggest(ctx, p)
	if err != nil {
		c.logger.Warn().Err(err).Msg("suggestion unavailable, using heuristic")
		return FallbackText, true
	}
	return text, false
}
