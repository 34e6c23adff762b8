// Package aggregate defines the combined weather, pollutant, and AQI payload
// for one coordinate, the client that fetches it from the backend, and the
// backend service that assembles it from upstream providers.
package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/geo"
)

// Payload is the /api/aggregate response. It is always produced for a single
// coordinate and replaced wholesale, never merged.
type Payload struct {
	Location         *Location            `json:"location,omitempty"`
	Sources          map[string]bool      `json:"sources,omitempty"`
	Used             string               `json:"used"`
	RealtimeAQI      *RealtimeAQI         `json:"realtimeAqi"`
	WeatherCondition *WeatherCondition    `json:"weatherCondition"`
	Weather          *RawWeather          `json:"weather,omitempty"`
	OpenWeather      *Availability        `json:"openweather,omitempty"`
	Pollutants       Pollutants           `json:"pollutants"`
	AQI500           *airquality.Index500 `json:"aqi500,omitempty"`
	DailyAQI         []DailyPoint         `json:"dailyAqi"`
	Debug            []string             `json:"debug,omitempty"`
}

// RealtimeAQI is the current reading. Scale is "OW_1_5" or "EPA_0_500";
// when absent it is inferred from the value.
type RealtimeAQI struct {
	AQI    *float64 `json:"aqi"`
	Source string   `json:"source"`
	Scale  string   `json:"scale,omitempty"`
}

// Pollutants holds concentrations per provider.
type Pollutants struct {
	OpenWeather map[airquality.Pollutant]float64 `json:"openweather"`
}

// Availability reports which OpenWeather calls returned data.
type Availability struct {
	Forecast bool `json:"forecast"`
	Current  bool `json:"current"`
}

// WeatherCondition is the normalized weather block. Every numeric field may
// be missing upstream.
type WeatherCondition struct {
	Main        string   `json:"main"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Temp        *float64 `json:"temp"`
	FeelsLike   *float64 `json:"feels_like"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	Visibility  *float64 `json:"visibility"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// RawWeather mirrors the upstream current-weather shape.
type RawWeather struct {
	Name string `json:"name,omitempty"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []RawCondition `json:"weather"`
}

// RawCondition is one upstream weather condition entry.
type RawCondition struct {
	Main        string `json:"main"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// DailyPoint is one (date label, AQI) pair, encoded as a two-element array.
type DailyPoint struct {
	Date  string
	Value float64
}

// MarshalJSON implements json.Marshaler.
func (p DailyPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Date, p.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *DailyPoint) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("daily point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("daily point: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Date); err != nil {
		return fmt.Errorf("daily point date: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("daily point value: %w", err)
	}
	return nil
}

// Location is either a free-text label or a coordinate object.
type Location struct {
	Label      string
	Coordinate *geo.Coordinate
}

// String renders the label, or the coordinate when there is no label.
func (l Location) String() string {
	if l.Label != "" {
		return l.Label
	}
	if l.Coordinate != nil {
		return l.Coordinate.String()
	}
	return ""
}

// MarshalJSON emits the coordinate object when known, else the label.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Coordinate != nil {
		return json.Marshal(l.Coordinate)
	}
	return json.Marshal(l.Label)
}

// UnmarshalJSON accepts a string or a {lat, lon} object.
func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &l.Label)
	}

	var c struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if c.Lat != nil && c.Lon != nil {
		l.Coordinate = &geo.Coordinate{Lat: *c.Lat, Lon: *c.Lon}
	}
	return nil
}

// Realtime returns the current AQI value and its declared scale.
func (p *Payload) Realtime() (value float64, scale string, ok bool) {
	if p == nil || p.RealtimeAQI == nil || p.RealtimeAQI.AQI == nil {
		return 0, "", false
	}
	return *p.RealtimeAQI.AQI, p.RealtimeAQI.Scale, true
}

// Overall500 returns aqi500.overall when present.
func (p *Payload) Overall500() (float64, bool) {
	if p == nil || p.AQI500 == nil || p.AQI500.Overall == nil {
		return 0, false
	}
	return *p.AQI500.Overall, true
}

// DefaultAQI500 is assumed when neither scale carries a value.
const DefaultAQI500 = 50

// AQI500Value is the canonical 0-500 value used by cards: aqi500.overall,
// else the realtime reading converted to 0-500, else DefaultAQI500.
func (p *Payload) AQI500Value() float64 {
	if v, ok := p.Overall500(); ok {
		return v
	}
	if v, scale, ok := p.Realtime(); ok {
		return airquality.To500(v, scale)
	}
	return DefaultAQI500
}

// Pollutant returns one OpenWeather concentration.
func (p *Payload) Pollutant(key airquality.Pollutant) (float64, bool) {
	if p == nil || p.Pollutants.OpenWeather == nil {
		return 0, false
	}
	v, ok := p.Pollutants.OpenWeather[key]
	return v, ok
}

// Temperature reads weather.main.temp, then weatherCondition.temp.
func (p *Payload) Temperature() (float64, bool) {
	if p == nil {
		return 0, false
	}
	if p.Weather != nil && p.Weather.Main.Temp != nil {
		return *p.Weather.Main.Temp, true
	}
	if p.WeatherCondition != nil && p.WeatherCondition.Temp != nil {
		return *p.WeatherCondition.Temp, true
	}
	return 0, false
}

// WindSpeed reads weather.wind.speed, then weatherCondition.wind_speed.
func (p *Payload) WindSpeed() (float64, bool) {
	if p == nil {
		return 0, false
	}
	if p.Weather != nil && p.Weather.Wind.Speed != nil {
		return *p.Weather.Wind.Speed, true
	}
	if p.WeatherCondition != nil && p.WeatherCondition.WindSpeed != nil {
		return *p.WeatherCondition.WindSpeed, true
	}
	return 0, false
}

// DailyValues returns the daily AQI values in order.
func (p *Payload) DailyValues() []float64 {
	if p == nil {
		return nil
	}
	vals := make([]float64, len(p.DailyAQI))
	for i, d := range p.DailyAQI {
		vals[i] = d.Value
	}
	return vals
}
