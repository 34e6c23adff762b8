package airquality

import "math"

// Scale identifies which AQI scale a realtime value is expressed in.
type Scale string

const (
	// ScaleOpenWeather is OpenWeather's 1 (good) to 5 (very poor) index.
	ScaleOpenWeather Scale = "OW_1_5"

	// ScaleEPA is the US EPA 0-500 index.
	ScaleEPA Scale = "EPA_0_500"
)

// Zone colors for the six buckets of the 1-5 scale, best to worst.
const (
	ColorGood               = "#00e400"
	ColorModerate           = "#ffff00"
	ColorUnhealthySensitive = "#ff7e00"
	ColorUnhealthy          = "#ff0000"
	ColorVeryUnhealthy      = "#8f3f97"
	ColorHazardous          = "#7e0023"
)

// bucket returns 0..5 for the 1-5 scale thresholds ≤1, ≤2, ≤3, ≤4, ≤5, above.
func bucket(aqi float64) int {
	switch {
	case aqi <= 1:
		return 0
	case aqi <= 2:
		return 1
	case aqi <= 3:
		return 2
	case aqi <= 4:
		return 3
	case aqi <= 5:
		return 4
	default:
		return 5
	}
}

var zoneColors = [6]string{
	ColorGood, ColorModerate, ColorUnhealthySensitive, ColorUnhealthy, ColorVeryUnhealthy, ColorHazardous,
}

var zoneDescriptions = [6]string{
	"Good Air Quality ✅",
	"Moderate Air Quality ⚠️",
	"Unhealthy for Sensitive Groups 🟠",
	"Unhealthy Air Quality ❌",
	"Very Unhealthy Air Quality 🚫",
	"Hazardous Air Quality ☠️",
}

// Color maps a value on the 1-5 scale to its zone color.
// NaN falls into the hazardous bucket.
func Color(aqi float64) string {
	return zoneColors[bucket(aqi)]
}

// ZoneDescription maps a value on the 1-5 scale to its zone label.
func ZoneDescription(aqi float64) string {
	return zoneDescriptions[bucket(aqi)]
}

// ResolveScale returns the declared scale, inferring it from magnitude when
// the payload did not declare one.
func ResolveScale(value float64, declared string) Scale {
	switch Scale(declared) {
	case ScaleOpenWeather, ScaleEPA:
		return Scale(declared)
	}
	if value > 5 {
		return ScaleEPA
	}
	return ScaleOpenWeather
}

// Band converts a realtime value to the 1-5 scale used by Color.
// EPA values map through the six EPA tiers, so 120 lands in bucket 3.
func Band(value float64, declared string) float64 {
	if ResolveScale(value, declared) == ScaleOpenWeather {
		return value
	}
	return float64(tierIndex(value) + 1)
}

// openWeatherTo500 maps each OpenWeather index to the upper bound of the
// matching EPA tier.
var openWeatherTo500 = [6]float64{50, 50, 100, 150, 200, 300}

// To500 converts a realtime value to the 0-500 scale used by the level tiers.
func To500(value float64, declared string) float64 {
	if ResolveScale(value, declared) == ScaleEPA {
		return value
	}
	idx := int(math.Round(value))
	if idx < 0 {
		idx = 0
	}
	if idx > 5 {
		idx = 5
	}
	return openWeatherTo500[idx]
}
