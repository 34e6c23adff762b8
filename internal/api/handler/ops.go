package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/api/response"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// SubsystemCheck probes one local dependency, such as the preference store.
type SubsystemCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	subsystems []SubsystemCheck
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, subsystems ...SubsystemCheck) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		registry:   registry,
		subsystems: subsystems,
	}
}

// HealthCheck handles GET /ops/health, the liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// SystemStatus handles GET /ops/status. Any failing subsystem fails the
// service; an open provider breaker only degrades it, since the aggregate
// endpoint answers with partial data.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK

	subsystems := make([]models.SubsystemStatus, 0, len(h.subsystems))
	for _, sc := range h.subsystems {
		s := models.SubsystemStatus{Name: sc.Name, Status: models.HealthStatusOK}
		if err := sc.Check(r.Context()); err != nil {
			msg := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &msg
			overall = models.HealthStatusFail
		}
		subsystems = append(subsystems, s)
	}

	var providers []models.ProviderStatus
	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			p := providerStatus(ph)
			if p.Status != models.HealthStatusOK && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
			providers = append(providers, p)
		}
	}
	if providers == nil {
		providers = []models.ProviderStatus{}
	}

	status := http.StatusOK
	if overall == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, models.SystemStatus{
		Status:     overall,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Providers:  providers,
	})
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       models.HealthStatusOK,
		CircuitState: ph.CircuitState.String(),
	}
	switch {
	case ph.IsUnhealthy():
		p.Status = models.HealthStatusFail
	case ph.IsDegraded():
		p.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		p.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		p.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		p.Message = &msg
	}
	return p
}
