// Package scheduler re-runs the dashboard refresh cycle on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/status"
)

// DefaultInterval is the auto refresh period.
const DefaultInterval = 5 * time.Minute

// Trigger is the refresh entry point shared with manual loads.
type Trigger func(ctx context.Context) error

// AutoRefreshConfig holds configuration for auto refresh.
type AutoRefreshConfig struct {
	// Trigger is invoked on every tick (required).
	Trigger Trigger

	// Interval between ticks (default: DefaultInterval).
	Interval time.Duration

	// Schedule overrides Interval when set.
	Schedule cron.Schedule

	Status status.Sink
	Logger zerolog.Logger
}

// AutoRefresh toggles a repeating trigger. Ticks are not serialized with
// manual loads or with each other.
type AutoRefresh struct {
	trigger  Trigger
	interval time.Duration
	schedule cron.Schedule
	status   status.Sink
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	enabled bool
}

// NewAutoRefresh creates a stopped auto refresher.
func NewAutoRefresh(cfg AutoRefreshConfig) *AutoRefresh {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = cron.Every(interval)
	}
	sink := cfg.Status
	if sink == nil {
		sink = status.Nop{}
	}

	return &AutoRefresh{
		trigger:  cfg.Trigger,
		interval: interval,
		schedule: schedule,
		status:   sink,
		logger:   cfg.Logger,
	}
}

// Start begins ticking. Ticks run with ctx's values but without its
// cancellation, so neither Stop nor ctx aborts a load already in flight.
// Starting an enabled refresher is a no-op.
func (a *AutoRefresh) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled {
		return
	}

	runCtx := context.WithoutCancel(ctx)
	c := cron.New()
	c.Schedule(a.schedule, cron.FuncJob(func() {
		a.logger.Debug().Msg("auto refresh tick")
		if err := a.trigger(runCtx); err != nil {
			a.logger.Warn().Err(err).Msg("auto refresh failed")
		}
	}))
	c.Start()

	a.cron = c
	a.enabled = true
	a.status.SetStatus(fmt.Sprintf("Auto-update started (every %s)", describe(a.interval)))
	a.logger.Info().Dur("interval", a.interval).Msg("auto refresh started")
}

// Stop halts ticking and waits for a running tick to finish on its own.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}
	c := a.cron
	a.cron = nil
	a.enabled = false
	a.mu.Unlock()

	<-c.Stop().Done()

	a.status.SetStatus("Auto-update stopped")
	a.logger.Info().Msg("auto refresh stopped")
}

// Toggle flips the refresher and reports whether it is now enabled.
func (a *AutoRefresh) Toggle(ctx context.Context) bool {
	if a.Enabled() {
		a.Stop()
		return false
	}
	a.Start(ctx)
	return true
}

// Enabled reports whether the refresher is running.
func (a *AutoRefresh) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func describe(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return d.String()
}
