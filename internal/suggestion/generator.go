package suggestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
)

// Defaults used when the payload carries no weather.
const (
	DefaultTemperature = 25.0
	DefaultWindSpeed   = 2.0
)

const maxInsights = 2

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// GeneratorConfig holds configuration for the generator.
type GeneratorConfig struct {
	// Now overrides the wall clock used for rush-hour cards.
	Now func() time.Time
}

// Generator builds suggestion cards. It is safe for concurrent use.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate evaluates the rule cascade in display order. It never fails and
// always returns at least the overall status card. aiText may be empty.
func (g *Generator) Generate(p *aggregate.Payload, aiText string) []Card {
	aqi := p.AQI500Value()
	pm25, _ := p.Pollutant(airquality.PollutantPM25)

	temp, ok := p.Temperature()
	if !ok {
		temp = DefaultTemperature
	}
	wind, ok := p.WindSpeed()
	if !ok {
		wind = DefaultWindSpeed
	}

	location := "Unknown"
	if p != nil && p.Location != nil && p.Location.String() != "" {
		location = p.Location.String()
	}

	level := airquality.LevelFor(aqi)
	cards := []Card{{
		Icon:     level.Icon,
		Title:    "Air Quality: " + level.Name,
		Content:  fmt.Sprintf("Current AQI is %s. %s", formatNumber(aqi), level.HealthAdvice),
		Type:     CardType(level.CardType),
		Priority: Priority(level.Priority),
		Source:   "Real-time · " + location,
	}}

	switch {
	case pm25 > 35:
		cards = append(cards, Card{
			Icon:     "🔴",
			Title:    "High PM2.5 Detected",
			Content:  fmt.Sprintf("PM2.5 level is %.1f µg/m³. Wear N95 mask outdoors. These fine particles can penetrate deep into lungs.", pm25),
			Type:     TypeDanger,
			Priority: PriorityHigh,
			Source:   "Pollutant Analysis",
		})
	case pm25 > 12:
		cards = append(cards, Card{
			Icon:     "🟡",
			Title:    "Moderate PM2.5 Levels",
			Content:  fmt.Sprintf("PM2.5 is %.1f µg/m³. Sensitive groups should limit prolonged outdoor activities.", pm25),
			Type:     TypeWarning,
			Priority: PriorityMedium,
			Source:   "Pollutant Analysis",
		})
	}

	cards = append(cards, activityCard(aqi))

	if temp > 35 {
		cards = append(cards, Card{
			Icon:     "🌡️",
			Title:    "High Temperature Alert",
			Content:  fmt.Sprintf("Temperature is %.1f°C. Combined with pollution, this can worsen respiratory issues. Stay hydrated and indoors during peak hours.", temp),
			Type:     TypeWarning,
			Priority: PriorityHigh,
			Source:   "Weather + AQI Analysis",
		})
	}

	switch {
	case wind < 1:
		cards = append(cards, Card{
			Icon:     "💨",
			Title:    "Low Wind Conditions",
			Content:  fmt.Sprintf("Wind speed is only %.1f m/s. Pollutants may accumulate. Air quality might worsen.", wind),
			Type:     TypeWarning,
			Priority: PriorityMedium,
			Source:   "Weather Analysis",
		})
	case wind > 5:
		cards = append(cards, Card{
			Icon:     "🌬️",
			Title:    "Good Wind Dispersion",
			Content:  fmt.Sprintf("Strong winds (%.1f m/s) are helping disperse pollutants. Air quality may improve.", wind),
			Type:     TypeHealth,
			Priority: PriorityLow,
			Source:   "Weather Analysis",
		})
	}

	switch hour := g.now().Hour(); {
	case hour >= 7 && hour <= 9:
		cards = append(cards, Card{
			Icon:     "🚗",
			Title:    "Morning Rush Hour",
			Content:  "Traffic pollution peaks during 7-9 AM. Avoid exercising near roads. Keep vehicle windows closed.",
			Type:     TypeWarning,
			Priority: PriorityMedium,
			Source:   "Time-based Analysis",
		})
	case hour >= 17 && hour <= 19:
		cards = append(cards, Card{
			Icon:     "🚦",
			Title:    "Evening Rush Hour",
			Content:  "Evening traffic increases pollution. Stay away from busy roads. Air quality usually worst at this time.",
			Type:     TypeWarning,
			Priority: PriorityMedium,
			Source:   "Time-based Analysis",
		})
	}

	if aqi > 100 {
		cards = append(cards, Card{
			Icon:     "🏠",
			Title:    "Indoor Air Quality Tips",
			Content:  "Keep windows closed. Use air purifiers with HEPA filters. Avoid burning incense or candles. Increase indoor plants.",
			Type:     TypeInfo,
			Priority: PriorityMedium,
			Source:   "Indoor Health Tips",
		})
	}

	if utf8.RuneCountInString(aiText) > 20 && !strings.Contains(aiText, "unavailable") {
		for _, insight := range ExtractInsights(aiText) {
			cards = append(cards, Card{
				Icon:     "🤖",
				Title:    "AI Insight",
				Content:  insight,
				Type:     TypeInfo,
				Priority: PriorityLow,
				Source:   "Google Gemini AI",
			})
		}
	}

	return cards
}

func activityCard(aqi float64) Card {
	switch {
	case aqi <= 50:
		return Card{
			Icon:     "🏃",
			Title:    "Great for Outdoor Activities",
			Content:  "Air quality is excellent! Perfect time for jogging, cycling, or outdoor exercises.",
			Type:     TypeHealth,
			Priority: PriorityLow,
			Source:   "Activity Recommendation",
		}
	case aqi <= 100:
		return Card{
			Icon:     "🚶",
			Title:    "Outdoor Activities OK",
			Content:  "Moderate air quality. Unusually sensitive people should consider reducing prolonged outdoor exertion.",
			Type:     TypeInfo,
			Priority: PriorityMedium,
			Source:   "Activity Recommendation",
		}
	case aqi <= 150:
		return Card{
			Icon:     "😷",
			Title:    "Limit Outdoor Exposure",
			Content:  "Children, elderly, and people with respiratory issues should reduce outdoor activities. Wear mask if going outside.",
			Type:     TypeWarning,
			Priority: PriorityHigh,
			Source:   "Activity Recommendation",
		}
	default:
		return Card{
			Icon:     "🚫",
			Title:    "Avoid Outdoor Activities",
			Content:  "Air quality is unhealthy. Stay indoors. Keep windows closed. Use air purifiers if available.",
			Type:     TypeDanger,
			Priority: PriorityHigh,
			Source:   "Activity Recommendation",
		}
	}
}

// ExtractInsights returns up to two sentences whose trimmed length is
// strictly between 30 and 200 characters.
func ExtractInsights(text string) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		s = strings.TrimSpace(s)
		n := utf8.RuneCountInString(s)
		if n <= 30 || n >= 200 {
			continue
		}
		out = append(out, s)
		if len(out) == maxInsights {
			break
		}
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
