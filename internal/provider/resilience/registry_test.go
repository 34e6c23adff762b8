package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

func registeredClient(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.MaxRetries = 0
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()
	client := registeredClient(registry, "openweathermap")

	assert.Equal(t, 1, registry.ProviderCount())
	assert.Equal(t, "openweathermap", client.Name())

	health := registry.GetHealth("openweathermap")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestRegistry_DoRecordsOutcome(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient(registry, "nominatim")

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("nominatim")
	require.NotNil(t, health.LastSuccessAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.Nil(t, health.LastFailureAt)

	status.Store(http.StatusInternalServerError)
	resp, err = get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.GetHealth("nominatim")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Internal Server Error")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = registeredClient(registry, "ipapi")

	registry.Unregister("ipapi")

	assert.Equal(t, 0, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("ipapi"))
}

func TestRegistry_RecordFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = registeredClient(registry, "gemini")

	registry.RecordFailure("gemini", assert.AnError)

	health := registry.GetHealth("gemini")
	require.NotNil(t, health)
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"openweathermap", "ipapi", "nominatim"} {
		_ = registeredClient(registry, name)
	}

	healthList := registry.GetAllHealth()
	require.Len(t, healthList, 3)
	assert.Equal(t, "ipapi", healthList[0].Name)
	assert.Equal(t, "nominatim", healthList[1].Name)
	assert.Equal(t, "openweathermap", healthList[2].Name)

	assert.Equal(t, []string{"ipapi", "nominatim", "openweathermap"}, registry.GetProviderNames())
}

func TestRegistry_UnknownNames(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.Empty(t, registry.GetProviderNames())
	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
}

func TestProviderHealth_Status(t *testing.T) {
	tests := []struct {
		state    gobreaker.State
		expected string
	}{
		{gobreaker.StateClosed, resilience.StatusHealthy},
		{gobreaker.StateHalfOpen, resilience.StatusDegraded},
		{gobreaker.StateOpen, resilience.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.expected, h.Status())
			assert.Equal(t, tt.state == gobreaker.StateClosed, h.IsHealthy())
		})
	}
}
