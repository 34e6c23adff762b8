package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/weather"
)

const (
	// ZoneRadius is the overlay radius in meters.
	ZoneRadius = 2000

	// ZoneFillOpacity is the overlay fill opacity.
	ZoneFillOpacity = 0.3

	// ChartLabel names the trend dataset.
	ChartLabel = "AQI Forecast"

	// NowLabel is the first chart label when a realtime value exists.
	NowLabel = "Now"

	notAvailable = "N/A"
)

// BuildChartData returns labels ["Now", dates...] and values
// [realtime, values...]. "Now" is present only when realtime carries a value.
func BuildChartData(realtime *aggregate.RealtimeAQI, daily []aggregate.DailyPoint) ChartSeries {
	s := ChartSeries{
		Label:  ChartLabel,
		Labels: make([]string, 0, len(daily)+1),
		Values: make([]float64, 0, len(daily)+1),
	}
	if realtime != nil && realtime.AQI != nil {
		s.Labels = append(s.Labels, NowLabel)
		s.Values = append(s.Values, *realtime.AQI)
	}
	for _, d := range daily {
		s.Labels = append(s.Labels, d.Date)
		s.Values = append(s.Values, d.Value)
	}
	return s
}

// BuildZone returns the overlay and badge marker for the realtime reading.
// ok is false when the payload has no realtime value.
func BuildZone(center geo.Coordinate, p *aggregate.Payload) (zone ZoneOverlay, badge Marker, ok bool) {
	v, scale, present := p.Realtime()
	if !present {
		return ZoneOverlay{}, Marker{}, false
	}

	band := airquality.Band(v, scale)
	color := airquality.Color(band)
	zone = ZoneOverlay{
		Center:      center,
		Radius:      ZoneRadius,
		Color:       color,
		FillOpacity: ZoneFillOpacity,
		AQI:         v,
		Description: airquality.ZoneDescription(band),
	}
	badge = Marker{
		Coordinate: center,
		Badge:      strconv.FormatFloat(math.Round(v), 'f', 0, 64),
		Color:      color,
	}
	return zone, badge, true
}

// BuildPollutantPanel returns one card per known pollutant present in the
// payload, plus a summary card when aqi500.overall is set.
func BuildPollutantPanel(p *aggregate.Payload) PollutantPanel {
	var panel PollutantPanel
	if overall, ok := p.Overall500(); ok {
		panel.Summary = &SummaryCard{Value: overall, Level: airquality.LevelFor(overall)}
	}

	for _, info := range airquality.Pollutants {
		v, ok := p.Pollutant(info.Key)
		if !ok {
			continue
		}
		panel.Cards = append(panel.Cards, PollutantCard{
			Key:         info.Key,
			Name:        info.Name,
			Description: info.Description,
			Unit:        info.Unit,
			Value:       v,
			Percentage:  airquality.Percentage(v, info.Ceiling),
			Status:      airquality.PollutantStatus(v, info.Ceiling),
		})
	}
	return panel
}

// UnavailableWeather is the widget shown without a weather condition.
var UnavailableWeather = WeatherWidget{
	Emoji:       weather.DefaultIcon,
	Headline:    "Weather Unavailable",
	Description: "No current weather data",
}

// BuildWeatherWidget renders the widget from weatherCondition. Missing
// sub-fields show as N/A; a missing condition yields UnavailableWeather.
func BuildWeatherWidget(wc *aggregate.WeatherCondition) WeatherWidget {
	if wc == nil {
		return UnavailableWeather
	}

	temp := formatOr(wc.Temp, func(v float64) string { return fmt.Sprintf("%.0f", math.Round(v)) })
	feels := formatOr(wc.FeelsLike, func(v float64) string { return fmt.Sprintf("%.0f", math.Round(v)) })
	humidity := formatOr(wc.Humidity, func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) })
	wind := formatOr(wc.WindSpeed, func(v float64) string { return fmt.Sprintf("%.1f", v*3.6) })
	visibility := formatOr(wc.Visibility, func(v float64) string { return fmt.Sprintf("%.1f", v/1000) })

	return WeatherWidget{
		Available:   true,
		Emoji:       weather.IconEmoji(wc.Icon),
		Headline:    temp + "°C",
		Description: wc.Description,
		Details: []string{
			"🌡️ Feels like: " + feels + "°C",
			"💧 Humidity: " + humidity + "%",
			"💨 Wind: " + wind + " km/h",
			"👁️ Visibility: " + visibility + " km",
		},
	}
}

func formatOr(v *float64, format func(float64) string) string {
	if v == nil {
		return notAvailable
	}
	return format(*v)
}

// LegacyWeatherLine renders the single-line widget from the raw weather block.
func LegacyWeatherLine(w *aggregate.RawWeather) string {
	if w == nil || len(w.Weather) == 0 {
		return "Weather unavailable"
	}
	temp := 0.0
	if w.Main.Temp != nil {
		temp = *w.Main.Temp
	}
	return fmt.Sprintf("%s: %.0f°C, %s", w.Name, math.Round(temp), w.Weather[0].Description)
}

// ShortenPlaceName keeps the first and last comma-separated parts.
func ShortenPlaceName(name string) string {
	if !strings.Contains(name, ",") {
		return name
	}
	parts := strings.Split(name, ",")
	first := strings.TrimSpace(parts[0])
	last := strings.TrimSpace(parts[len(parts)-1])
	return first + ", " + last
}
