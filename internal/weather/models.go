// Package weather provides current weather and air pollution data with caching.
package weather

import (
	"errors"
	"time"

	"github.com/breatheroute/airwatch/internal/airquality"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrCityRequired        = errors.New("city required")
)

// Observation represents weather data at a specific point and time.
type Observation struct {
	// Location coordinates
	Lat float64
	Lon float64

	// City is the upstream place name, if any.
	City string

	// Temperatures in Celsius
	Temperature *float64
	FeelsLike   *float64

	// Humidity percentage (0-100)
	Humidity *float64

	// WindSpeed in m/s
	WindSpeed *float64

	// Visibility in meters
	Visibility *float64

	// Condition summary from the first upstream condition entry.
	// HasCondition is false when the upstream list was empty.
	HasCondition bool
	Main         string
	Description  string
	Icon         string

	// Timestamps
	ObservedAt time.Time
	FetchedAt  time.Time
}

// AirPollutionSample is one entry of an air pollution response.
type AirPollutionSample struct {
	// Time is the sample timestamp.
	Time time.Time

	// Index is the OpenWeather 1-5 air quality index, 0 when absent.
	Index int

	// Components maps pollutant keys to concentrations in µg/m³.
	Components map[airquality.Pollutant]float64
}

// AirPollution is a list of samples for one coordinate. Current readings
// carry one sample; forecasts carry hourly samples for several days.
type AirPollution struct {
	Lat       float64
	Lon       float64
	Samples   []AirPollutionSample
	FetchedAt time.Time
}

// Empty reports whether the response carried no samples.
func (a *AirPollution) Empty() bool {
	return a == nil || len(a.Samples) == 0
}
