package models

import "encoding/json"

// SuggestResponse is the body of POST /api/gemini/suggest.
type SuggestResponse struct {
	Suggestion string `json:"suggestion"`
}

// ChatResponse is the body of POST /api/gemini/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// CityWeather is the body of GET /api/weather.
type CityWeather struct {
	City    string             `json:"city"`
	Weather WeatherObservation `json:"weather"`
}

// WeatherObservation is current weather for a city. Unknown values are null.
type WeatherObservation struct {
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Main        string    `json:"main,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Temperature *float64  `json:"temp"`
	FeelsLike   *float64  `json:"feels_like"`
	Humidity    *float64  `json:"humidity"`
	WindSpeed   *float64  `json:"wind_speed"`
	Visibility  *float64  `json:"visibility"`
	ObservedAt  Timestamp `json:"observed_at"`
}

// RevGeo is the body of GET /api/revgeo.
type RevGeo struct {
	IP   string          `json:"ip"`
	City string          `json:"city"`
	Lat  float64         `json:"lat"`
	Lon  float64         `json:"lon"`
	Raw  json.RawMessage `json:"raw"`
}

// Layout is the body of GET and PUT /api/preferences/layout. On PUT a preset
// name takes precedence over explicit widths.
type Layout struct {
	LeftWidth  int    `json:"leftWidth"`
	RightWidth int    `json:"rightWidth"`
	Preset     string `json:"preset,omitempty"`
}
