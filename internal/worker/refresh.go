package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/weather"
)

// WeatherSource is the cached upstream the refresh job warms.
// *weather.Service satisfies it.
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
	GetAirPollution(ctx context.Context, lat, lon float64) (*weather.AirPollution, error)
	GetAirPollutionForecast(ctx context.Context, lat, lon float64) (*weather.AirPollution, error)
}

// Upstream kinds reported in RefreshError.
const (
	KindWeather   = "weather"
	KindPollution = "air_pollution"
	KindForecast  = "air_pollution_forecast"
)

// RefreshJob fetches every configured point through the weather cache so
// dashboard loads for those locations are served from memory.
type RefreshJob struct {
	config  RefreshConfig
	source  WeatherSource
	logger  zerolog.Logger
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulPoints  int64
	FailedPoints      int64
	WeatherRefresh    int64
	PollutionRefresh  int64
	ForecastRefresh   int64
	LastRefreshAt     time.Time
	LastRunDuration   time.Duration
	TotalRunDuration  time.Duration
	EmptyForecastSeen int64
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Source WeatherSource
	Logger zerolog.Logger
}

// NewRefreshJob creates a refresh job. A config without targets is replaced
// by DefaultRefreshConfig.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:  config,
		source:  cfg.Source,
		logger:  cfg.Logger,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of one run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Skipped     int
	Errors      []RefreshError
}

// RefreshError records one failed upstream fetch.
type RefreshError struct {
	Kind  string
	Point geo.Coordinate
	Error string
}

type pointResult struct {
	success       bool
	refreshed     map[string]int
	emptyForecast bool
	errors        []RefreshError
}

// Run refreshes all configured points. Points not reached before ctx is
// cancelled count as skipped.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	start := time.Now()
	points := j.config.AllPoints()
	result := &RefreshResult{StartTime: start, TotalPoints: len(points)}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting weather cache refresh")

	pointsChan := make(chan geo.Coordinate, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pointsChan {
				if ctx.Err() != nil {
					continue
				}
				resultsChan <- j.refreshPoint(ctx, p)
			}
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	refreshed := map[string]int{}
	emptyForecasts := 0
	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		for kind, n := range pr.refreshed {
			refreshed[kind] += n
		}
		if pr.emptyForecast {
			emptyForecasts++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}
	result.Skipped = result.TotalPoints - result.Successful - result.Failed

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	j.updateMetrics(result, refreshed, emptyForecasts)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("weather cache refresh completed")

	return result
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point geo.Coordinate) pointResult {
	result := pointResult{success: true, refreshed: map[string]int{}}
	if j.source == nil {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	fail := func(kind string, err error) {
		result.success = false
		result.errors = append(result.errors, RefreshError{Kind: kind, Point: point, Error: err.Error()})
	}

	if j.config.RefreshWeather {
		if _, err := j.source.GetCurrentWeather(ctx, point.Lat, point.Lon); err != nil {
			fail(KindWeather, err)
		} else {
			result.refreshed[KindWeather]++
		}
	}

	if j.config.RefreshPollution {
		if _, err := j.source.GetAirPollution(ctx, point.Lat, point.Lon); err != nil {
			fail(KindPollution, err)
		} else {
			result.refreshed[KindPollution]++
		}
	}

	if j.config.RefreshForecast {
		fc, err := j.source.GetAirPollutionForecast(ctx, point.Lat, point.Lon)
		switch {
		case err != nil:
			fail(KindForecast, err)
		case fc.Empty():
			// Not cached; the next dashboard load retries upstream anyway.
			result.emptyForecast = true
			j.logger.Debug().Stringer("point", point).Msg("empty forecast while warming cache")
		default:
			result.refreshed[KindForecast]++
		}
	}

	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult, refreshed map[string]int, emptyForecasts int) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.WeatherRefresh += int64(refreshed[KindWeather])
	j.metrics.PollutionRefresh += int64(refreshed[KindPollution])
	j.metrics.ForecastRefresh += int64(refreshed[KindForecast])
	j.metrics.EmptyForecastSeen += int64(emptyForecasts)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalRunDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:         j.metrics.TotalRuns,
		SuccessfulPoints:  j.metrics.SuccessfulPoints,
		FailedPoints:      j.metrics.FailedPoints,
		WeatherRefresh:    j.metrics.WeatherRefresh,
		PollutionRefresh:  j.metrics.PollutionRefresh,
		ForecastRefresh:   j.metrics.ForecastRefresh,
		LastRefreshAt:     j.metrics.LastRefreshAt,
		LastRunDuration:   j.metrics.LastRunDuration,
		TotalRunDuration:  j.metrics.TotalRunDuration,
		EmptyForecastSeen: j.metrics.EmptyForecastSeen,
	}
}

// MetricsSnapshot returns the current metrics as a map for the health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":          m.TotalRuns,
		"successful_points":   m.SuccessfulPoints,
		"failed_points":       m.FailedPoints,
		"weather_refreshes":   m.WeatherRefresh,
		"pollution_refreshes": m.PollutionRefresh,
		"forecast_refreshes":  m.ForecastRefresh,
		"empty_forecasts":     m.EmptyForecastSeen,
		"last_refresh_at":     m.LastRefreshAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"total_run_duration":  m.TotalRunDuration.String(),
	}
}
