package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/breatheroute/airwatch/internal/api/models"
)

// HeaderClientID identifies a dashboard instance for rate limiting.
const HeaderClientID = "X-Client-Id"

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// AssistantRateLimit applies to the Gemini-backed endpoints (20 req/min).
	AssistantRateLimit = RateLimitConfig{RequestLimit: 20, WindowLength: time.Minute}

	// AggregateRateLimit applies to the aggregate endpoint, which fans out to
	// three upstream calls (60 req/min).
	AggregateRateLimit = RateLimitConfig{RequestLimit: 60, WindowLength: time.Minute}

	// StandardRateLimit applies to everything else under /api (100 req/min).
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits by client IP. Run chi's RealIP middleware first so
// X-Forwarded-For is honoured.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

// RateLimitByClient limits by the X-Client-Id header, falling back to the
// client IP for requests without one.
func RateLimitByClient(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByClientOrIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

func keyByClientOrIP(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(HeaderClientID)); id != "" {
		return "client:" + id, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceeded writes a 429 problem. httprate does not expose the window
// reset time, so Retry-After is the full window.
func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}
