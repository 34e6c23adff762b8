// Package airquality provides AQI scales, pollutant metadata, and the formatting
// helpers used to turn raw concentrations into display values.
package airquality

// Pollutant is an OpenWeather air pollution component key.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm2_5"
	PollutantPM10 Pollutant = "pm10"
	PollutantO3   Pollutant = "o3"
	PollutantNO2  Pollutant = "no2"
	PollutantSO2  Pollutant = "so2"
	PollutantCO   Pollutant = "co"
	PollutantNH3  Pollutant = "nh3"
	PollutantNO   Pollutant = "no"
)

// UnitMicrogramsPerCubicMeter is the unit of every OpenWeather component.
const UnitMicrogramsPerCubicMeter = "µg/m³"

// PollutantInfo describes how a pollutant is presented.
type PollutantInfo struct {
	Key         Pollutant
	Name        string
	Description string
	Unit        string

	// Ceiling is the concentration treated as 100% on the progress bar.
	Ceiling float64
}

// Pollutants lists the known pollutants in display order.
var Pollutants = []PollutantInfo{
	{Key: PollutantPM25, Name: "PM2.5", Description: "Fine Particles", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 100},
	{Key: PollutantPM10, Name: "PM10", Description: "Coarse Particles", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 150},
	{Key: PollutantO3, Name: "O₃", Description: "Ozone", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 180},
	{Key: PollutantNO2, Name: "NO₂", Description: "Nitrogen Dioxide", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 200},
	{Key: PollutantSO2, Name: "SO₂", Description: "Sulfur Dioxide", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 350},
	{Key: PollutantCO, Name: "CO", Description: "Carbon Monoxide", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 10000},
	{Key: PollutantNH3, Name: "NH₃", Description: "Ammonia", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 200},
	{Key: PollutantNO, Name: "NO", Description: "Nitric Oxide", Unit: UnitMicrogramsPerCubicMeter, Ceiling: 100},
}

// LookupPollutant returns the metadata for a pollutant key.
func LookupPollutant(key Pollutant) (PollutantInfo, bool) {
	for _, p := range Pollutants {
		if p.Key == key {
			return p, true
		}
	}
	return PollutantInfo{}, false
}

// Status is the four-bucket concentration status shown on a pollutant card.
type Status string

const (
	StatusGood      Status = "Good"
	StatusModerate  Status = "Moderate"
	StatusUnhealthy Status = "Unhealthy"
	StatusHazardous Status = "Hazardous"
)

// CSSClass returns the lowercase class name used by renderers.
func (s Status) CSSClass() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusModerate:
		return "moderate"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "hazardous"
	}
}

// Percentage returns value as a share of ceiling, capped at 100.
// A non-positive ceiling yields 100 for any positive value.
func Percentage(value, ceiling float64) float64 {
	if ceiling <= 0 {
		if value > 0 {
			return 100
		}
		return 0
	}
	pct := value / ceiling * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// PollutantStatus classifies a concentration against its ceiling.
func PollutantStatus(value, ceiling float64) Status {
	pct := Percentage(value, ceiling)
	switch {
	case pct <= 25:
		return StatusGood
	case pct <= 50:
		return StatusModerate
	case pct <= 75:
		return StatusUnhealthy
	default:
		return StatusHazardous
	}
}
