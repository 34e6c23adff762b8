package suggestion_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/suggestion"
)

func newClient(url string) *suggestion.Client {
	return suggestion.NewClient(suggestion.ClientConfig{BaseURL: url, Logger: zerolog.New(io.Discard)})
}

func TestClient_Suggest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/gemini/suggest", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p aggregate.Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "openweather_current", p.Used)

		_, _ = w.Write([]byte(`{"suggestion":"- Looks good today."}`))
	}))
	defer server.Close()

	text, err := newClient(server.URL).Suggest(context.Background(), &aggregate.Payload{Used: "openweather_current"})
	require.NoError(t, err)
	assert.Equal(t, "- Looks good today.", text)
}

func TestClient_SuggestOrFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	text, fallback := newClient(server.URL).SuggestOrFallback(context.Background(), &aggregate.Payload{})
	assert.True(t, fallback)
	assert.Equal(t, suggestion.FallbackText, text)
}

func TestClient_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Suggest(context.Background(), &aggregate.Payload{})
	assert.ErrorContains(t, err, "decoding response")
}
