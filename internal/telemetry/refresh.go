package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const refreshMeterName = "github.com/breatheroute/airwatch/internal/dashboard"

// Refresh cycle outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeHeuristic = "heuristic"
	OutcomeError     = "error"
)

// RefreshMetrics holds instruments for dashboard refresh cycles.
type RefreshMetrics struct {
	cycles   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRefreshMetrics creates refresh cycle instruments on the global meter provider.
func NewRefreshMetrics() (*RefreshMetrics, error) {
	meter := otel.Meter(refreshMeterName)

	cycles, err := meter.Int64Counter(
		"dashboard.refresh.total",
		metric.WithDescription("Total number of refresh cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"dashboard.refresh.duration",
		metric.WithDescription("Duration of refresh cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{cycles: cycles, duration: duration}, nil
}

// RecordCycle records one finished refresh cycle.
func (m *RefreshMetrics) RecordCycle(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.cycles.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
