package suggestion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/suggestion"
)

func ptr(v float64) *float64 { return &v }

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2024, 5, 1, hour, 30, 0, 0, time.Local) }
}

func titles(cards []suggestion.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Title
	}
	return out
}

func TestGenerate_GoodAirMinimal(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})

	cards := g.Generate(&aggregate.Payload{AQI500: &airquality.Index500{Overall: ptr(30)}}, "")

	assert.Equal(t, []string{"Air Quality: Good", "Great for Outdoor Activities"}, titles(cards))
	assert.Equal(t, "Current AQI is 30. Air quality is satisfactory, and air pollution poses little or no risk. Enjoy your outdoor activities!", cards[0].Content)
	assert.Equal(t, "Real-time · Unknown", cards[0].Source)
}

func TestGenerate_UnhealthyForSensitiveScenario(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})
	p := &aggregate.Payload{
		RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(120), Source: "ow"},
		Pollutants:  aggregate.Pollutants{OpenWeather: map[airquality.Pollutant]float64{airquality.PollutantPM25: 40}},
	}

	cards := g.Generate(p, "")

	require.Len(t, cards, 4)
	assert.Equal(t, "Air Quality: Unhealthy for Sensitive Groups", cards[0].Title)
	assert.Equal(t, suggestion.TypeWarning, cards[0].Type)
	assert.Equal(t, "High PM2.5 Detected", cards[1].Title)
	assert.Equal(t, suggestion.TypeDanger, cards[1].Type)
	assert.Contains(t, cards[1].Content, "40.0 µg/m³")
	assert.Equal(t, "Limit Outdoor Exposure", cards[2].Title)
	assert.Equal(t, "Indoor Air Quality Tips", cards[3].Title)
}

func TestGenerate_OpenWeatherScaleConverted(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})

	cards := g.Generate(&aggregate.Payload{RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(4), Scale: "OW_1_5"}}, "")

	assert.Equal(t, "Air Quality: Unhealthy", cards[0].Title)
	assert.Contains(t, cards[0].Content, "Current AQI is 200.")
}

func TestGenerate_PM25Tiers(t *testing.T) {
	tests := []struct {
		pm25     float64
		expected string
	}{
		{12, ""},
		{12.1, "Moderate PM2.5 Levels"},
		{35, "Moderate PM2.5 Levels"},
		{35.1, "High PM2.5 Detected"},
	}

	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})
	for _, tt := range tests {
		p := &aggregate.Payload{Pollutants: aggregate.Pollutants{OpenWeather: map[airquality.Pollutant]float64{airquality.PollutantPM25: tt.pm25}}}
		cards := g.Generate(p, "")
		if tt.expected == "" {
			assert.NotContains(t, titles(cards), "Moderate PM2.5 Levels")
			assert.NotContains(t, titles(cards), "High PM2.5 Detected")
			continue
		}
		assert.Equal(t, tt.expected, cards[1].Title)
	}
}

func TestGenerate_ActivityTiers(t *testing.T) {
	tests := []struct {
		aqi      float64
		expected string
	}{
		{50, "Great for Outdoor Activities"},
		{51, "Outdoor Activities OK"},
		{150, "Limit Outdoor Exposure"},
		{151, "Avoid Outdoor Activities"},
		{400, "Avoid Outdoor Activities"},
	}

	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})
	for _, tt := range tests {
		cards := g.Generate(&aggregate.Payload{AQI500: &airquality.Index500{Overall: ptr(tt.aqi)}}, "")
		assert.Equal(t, tt.expected, cards[1].Title, "aqi %v", tt.aqi)
	}
}

func TestGenerate_WeatherCards(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})

	hot := &aggregate.Payload{WeatherCondition: &aggregate.WeatherCondition{Temp: ptr(38.25), WindSpeed: ptr(0.4)}}
	cards := g.Generate(hot, "")
	assert.Contains(t, titles(cards), "High Temperature Alert")
	assert.Contains(t, titles(cards), "Low Wind Conditions")

	windy := &aggregate.Payload{WeatherCondition: &aggregate.WeatherCondition{Temp: ptr(20), WindSpeed: ptr(7.5)}}
	cards = g.Generate(windy, "")
	assert.NotContains(t, titles(cards), "High Temperature Alert")
	assert.Contains(t, titles(cards), "Good Wind Dispersion")

	calm := &aggregate.Payload{WeatherCondition: &aggregate.WeatherCondition{WindSpeed: ptr(3)}}
	cards = g.Generate(calm, "")
	assert.NotContains(t, titles(cards), "Low Wind Conditions")
	assert.NotContains(t, titles(cards), "Good Wind Dispersion")
}

func TestGenerate_RushHour(t *testing.T) {
	tests := []struct {
		hour     int
		expected string
	}{
		{6, ""},
		{7, "Morning Rush Hour"},
		{9, "Morning Rush Hour"},
		{10, ""},
		{17, "Evening Rush Hour"},
		{19, "Evening Rush Hour"},
		{20, ""},
	}

	for _, tt := range tests {
		g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(tt.hour)})
		got := titles(g.Generate(&aggregate.Payload{}, ""))
		if tt.expected == "" {
			assert.Len(t, got, 2, "hour %d", tt.hour)
			continue
		}
		assert.Contains(t, got, tt.expected, "hour %d", tt.hour)
	}
}

func TestGenerate_AIInsights(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})
	ai := "Short one. The air in your area is moderately polluted this afternoon! " +
		"Consider wearing a mask if you commute by bike today? Third long sentence that should be dropped here."

	cards := g.Generate(&aggregate.Payload{}, ai)

	require.Len(t, cards, 4)
	assert.Equal(t, "The air in your area is moderately polluted this afternoon", cards[2].Content)
	assert.Equal(t, "Consider wearing a mask if you commute by bike today", cards[3].Content)
	assert.Equal(t, "Google Gemini AI", cards[3].Source)

	cards = g.Generate(&aggregate.Payload{}, suggestion.FallbackText)
	assert.Len(t, cards, 2)

	cards = g.Generate(&aggregate.Payload{}, "too short")
	assert.Len(t, cards, 2)
}

func TestGenerate_Idempotent(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(8)})
	p := &aggregate.Payload{
		RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(3)},
		Pollutants:  aggregate.Pollutants{OpenWeather: map[airquality.Pollutant]float64{airquality.PollutantPM25: 20}},
		Location:    &aggregate.Location{Label: "Pune"},
	}
	ai := "Expect hazy skies through the evening across the city."

	assert.Equal(t, g.Generate(p, ai), g.Generate(p, ai))
	assert.Equal(t, "Real-time · Pune", g.Generate(p, ai)[0].Source)
}

func TestGenerate_NilPayload(t *testing.T) {
	g := suggestion.NewGenerator(suggestion.GeneratorConfig{Now: at(12)})
	cards := g.Generate(nil, "")
	assert.Equal(t, []string{"Air Quality: Good", "Great for Outdoor Activities"}, titles(cards))
}

func TestExtractInsights(t *testing.T) {
	assert.Empty(t, suggestion.ExtractInsights(""))
	assert.Empty(t, suggestion.ExtractInsights("Exactly thirty characters ok!!"))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.Empty(t, suggestion.ExtractInsights(string(long)+"."))

	got := suggestion.ExtractInsights("   Keep windows shut during the evening peak hours...   ")
	assert.Equal(t, []string{"Keep windows shut during the evening peak hours"}, got)
}
