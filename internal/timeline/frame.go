// Package timeline plays back a precomputed list of forecast frames.
package timeline

import (
	"encoding/json"
	"fmt"
)

// Frame is one forecast interval.
type Frame struct {
	Hour        int     `json:"hour"`
	Time        string  `json:"time"`
	DateTime    string  `json:"datetime"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Condition   string  `json:"weather_condition"`
	Icon        string  `json:"weather_icon"`
	AQI         float64 `json:"predicted_aqi"`
	Level       string  `json:"air_quality_level"`
	LevelColor  string  `json:"level_color"`
	Period      string  `json:"time_period"`
}

// String renders f on one line.
func (f Frame) String() string {
	return fmt.Sprintf("%s %s %s %.1f°C AQI %.0f (%s) 💧%.0f%% 💨%.1f m/s %s",
		f.DateTime, f.Icon, f.Condition, f.Temperature, f.AQI, f.Level, f.Humidity, f.WindSpeed, f.Period)
}

// ParseFrames extracts the hourly_forecast list from an hourly forecast response.
func ParseFrames(raw json.RawMessage) ([]Frame, error) {
	var body struct {
		HourlyForecast []Frame `json:"hourly_forecast"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding hourly forecast: %w", err)
	}
	if len(body.HourlyForecast) == 0 {
		return nil, ErrNoFrames
	}
	return body.HourlyForecast, nil
}
