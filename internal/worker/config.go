// Package worker runs the remote dashboard: Pub/Sub jobs load coordinates
// into a dashboard whose surfaces are published over MQTT, and a refresh job
// keeps the upstream weather cache warm for the busiest locations.
package worker

import (
	"sort"
	"time"

	"github.com/breatheroute/airwatch/internal/geo"
)

// RefreshTarget is a named group of coordinates to keep warm.
type RefreshTarget struct {
	Name string

	Points []geo.Coordinate

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the cache refresh job.
type RefreshConfig struct {
	// Targets are the locations to warm. If empty, DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent point refreshes (default: 3).
	Concurrency int

	// Timeout bounds each point refresh (default: 30 seconds).
	Timeout time.Duration

	RefreshWeather   bool
	RefreshPollution bool
	RefreshForecast  bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:          DefaultRefreshTargets(),
		Concurrency:      3,
		Timeout:          30 * time.Second,
		RefreshWeather:   true,
		RefreshPollution: true,
		RefreshForecast:  true,
	}
}

// DefaultRefreshTargets covers the largest Indian metros, starting with the
// default dashboard location.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{Name: "Delhi", Priority: 1, Points: []geo.Coordinate{
			geo.Default,
			{Lat: 28.5355, Lon: 77.3910}, // Noida
			{Lat: 28.4595, Lon: 77.0266}, // Gurugram
		}},
		{Name: "Mumbai", Priority: 1, Points: []geo.Coordinate{
			{Lat: 19.0760, Lon: 72.8777},
			{Lat: 19.2183, Lon: 72.9781}, // Thane
		}},
		{Name: "Kolkata", Priority: 1, Points: []geo.Coordinate{{Lat: 22.5726, Lon: 88.3639}}},
		{Name: "Bengaluru", Priority: 2, Points: []geo.Coordinate{{Lat: 12.9716, Lon: 77.5946}}},
		{Name: "Chennai", Priority: 2, Points: []geo.Coordinate{{Lat: 13.0827, Lon: 80.2707}}},
		{Name: "Hyderabad", Priority: 2, Points: []geo.Coordinate{{Lat: 17.3850, Lon: 78.4867}}},
		{Name: "Lucknow", Priority: 2, Points: []geo.Coordinate{{Lat: 26.8467, Lon: 80.9462}}},
		{Name: "Pune", Priority: 3, Points: []geo.Coordinate{{Lat: 18.5204, Lon: 73.8567}}},
		{Name: "Ahmedabad", Priority: 3, Points: []geo.Coordinate{{Lat: 23.0225, Lon: 72.5714}}},
		{Name: "Jaipur", Priority: 3, Points: []geo.Coordinate{{Lat: 26.9124, Lon: 75.7873}}},
		{Name: "Patna", Priority: 3, Points: []geo.Coordinate{{Lat: 25.5941, Lon: 85.1376}}},
	}
}

// AllPoints returns every point, higher-priority targets first.
func (c RefreshConfig) AllPoints() []geo.Coordinate {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Priority < targets[j].Priority })

	var points []geo.Coordinate
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
