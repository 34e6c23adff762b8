package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

func newIPLocator(url string) *geo.IPLocator {
	cfg := resilience.DefaultClientConfig("ipapi-test")
	cfg.MaxRetries = 0
	return geo.NewIPLocator(geo.IPLocatorConfig{URL: url, HTTPClient: resilience.NewClient(cfg)})
}

func TestIPLocator_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","city":"Mumbai","latitude":19.076,"longitude":72.8777,"country":"IN"}`))
	}))
	defer server.Close()

	res, err := newIPLocator(server.URL).Lookup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.7", res.IP)
	assert.Equal(t, "Mumbai", res.City)
	assert.Equal(t, geo.Coordinate{Lat: 19.076, Lon: 72.8777}, res.Coordinate)
	assert.Contains(t, string(res.Raw), `"country":"IN"`)
}

func TestIPLocator_MissingCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","error":true,"reason":"RateLimited"}`))
	}))
	defer server.Close()

	_, err := newIPLocator(server.URL).Locate(context.Background())
	var uerr *geo.UpstreamDataError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "ipapi", uerr.Provider)
}

func TestIPLocator_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newIPLocator(server.URL).Locate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChainLocator(t *testing.T) {
	failing := &funcLocator{fn: func(context.Context) (geo.Position, error) {
		return geo.Position{}, errors.New("no gps")
	}}
	static := geo.StaticLocator{Position: geo.Position{Coordinate: geo.Coordinate{Lat: 10, Lon: 20}}}

	pos, err := geo.ChainLocator{failing, static}.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 10, Lon: 20}, pos.Coordinate)

	_, err = geo.ChainLocator{failing, failing}.Locate(context.Background())
	assert.ErrorContains(t, err, "no gps")

	_, err = geo.ChainLocator{}.Locate(context.Background())
	assert.ErrorIs(t, err, geo.ErrUnsupported)
}
