// Package dashboard runs the refresh cycle: it fetches the aggregate payload
// for a coordinate and pushes every derived surface to a ViewPort.
package dashboard

import (
	"time"

	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/suggestion"
)

// ViewPort receives typed surface updates. Implementations translate them
// into a concrete rendering (terminal, MQTT topics, test recorder).
type ViewPort interface {
	CenterMap(center geo.Coordinate, zoom int)
	SetMarker(m Marker)
	ClearZoneOverlay()
	SetZoneOverlay(z ZoneOverlay)
	SetChartSeries(s ChartSeries)
	SetPollutantPanel(p PollutantPanel)
	SetWeatherWidget(w WeatherWidget)
	SetPlaceName(name string)
	SetLastUpdated(at time.Time)
	SetSuggestionCards(cards []suggestion.Card)
	ShowError(e LoadError)
}

// Marker is the map pin. Badge is empty for the plain pin.
type Marker struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Badge      string         `json:"badge,omitempty"`
	Color      string         `json:"color,omitempty"`
}

// ZoneOverlay is the translucent circle drawn around the coordinate.
type ZoneOverlay struct {
	Center      geo.Coordinate `json:"center"`
	Radius      float64        `json:"radius"`
	Color       string         `json:"color"`
	FillOpacity float64        `json:"fillOpacity"`
	AQI         float64        `json:"aqi"`
	Description string         `json:"description"`
}

// ChartSeries is the trend chart dataset. Labels and Values always have the
// same length.
type ChartSeries struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// PollutantCard is one pollutant with its progress bar.
type PollutantCard struct {
	Key         airquality.Pollutant `json:"key"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Unit        string               `json:"unit"`
	Value       float64              `json:"value"`
	Percentage  float64              `json:"percentage"`
	Status      airquality.Status    `json:"status"`
}

// SummaryCard shows the 0-500 overall value.
type SummaryCard struct {
	Value float64          `json:"value"`
	Level airquality.Level `json:"level"`
}

// PollutantPanel holds the summary card, if any, and the pollutant cards in
// display order.
type PollutantPanel struct {
	Summary *SummaryCard    `json:"summary,omitempty"`
	Cards   []PollutantCard `json:"cards"`
}

// WeatherWidget is all-or-nothing: when Available is false there are no
// detail lines.
type WeatherWidget struct {
	Available   bool     `json:"available"`
	Emoji       string   `json:"emoji"`
	Headline    string   `json:"headline"`
	Description string   `json:"description"`
	Details     []string `json:"details,omitempty"`
}

// LoadError is shown when a cycle fails before any surface is touched.
type LoadError struct {
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
}
