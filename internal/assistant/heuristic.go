package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
)

// HeuristicSuggestion summarizes a payload without a model: current AQI,
// 7-day average and trend, one line of advice, and the PM2.5 level.
func HeuristicSuggestion(p *aggregate.Payload) string {
	vals := p.DailyValues()
	aqi, _, hasRealtime := p.Realtime()

	current := "Current AQI unavailable"
	if hasRealtime {
		current = fmt.Sprintf("Current AQI %s (via %s)", formatNumber(aqi), p.RealtimeAQI.Source)
	}

	var b strings.Builder
	if avg, ok := mean(vals); ok {
		fmt.Fprintf(&b, "%s. Avg next-7 %.1f. Trend %s.", current, avg, trend(vals, "rising", "falling"))
	} else {
		b.WriteString(current + ".")
	}

	if hasRealtime {
		switch {
		case aqi > 0 && aqi <= 2:
			b.WriteString("\n- Looks good today.")
		case aqi > 0 && aqi <= 3:
			b.WriteString("\n- Moderate; sensitive groups take care.")
		default:
			b.WriteString("\n- Unhealthy; limit outdoor time.")
		}
	}

	if pm25, ok := p.Pollutant(airquality.PollutantPM25); ok {
		fmt.Fprintf(&b, " PM2.5 ~ %sµg/m³.", formatNumber(pm25))
	}
	return b.String()
}

var (
	healthWords   = []string{"health", "safe", "recommend", "advice"}
	currentWords  = []string{"current", "now", "today"}
	forecastWords = []string{"forecast", "tomorrow", "week", "trend"}
)

// FallbackReply answers a chat message from keywords and the payload alone.
func FallbackReply(message string, p *aggregate.Payload) string {
	msg := strings.ToLower(message)
	aqi, _, hasRealtime := p.Realtime()
	vals := p.DailyValues()
	avg, hasAvg := mean(vals)

	switch {
	case containsAny(msg, healthWords):
		if !hasRealtime {
			return "I'd need current air quality data to give specific health advice. Try refreshing the location data first."
		}
		switch {
		case aqi <= 2:
			return "✅ Air quality looks good! Safe for outdoor activities. Consider light exercise outside."
		case aqi <= 3:
			return "⚠️ Moderate air quality. Sensitive individuals should limit prolonged outdoor exposure."
		default:
			return "🚫 Poor air quality. Limit outdoor activities and consider wearing a mask if you must go outside."
		}

	case containsAny(msg, currentWords):
		head := "Current AQI unavailable"
		if hasRealtime {
			head = fmt.Sprintf("Current AQI: %s (OpenWeather scale 1-5)", formatNumber(aqi))
		}
		if hasAvg {
			return fmt.Sprintf("%s | 7-day average: %.1f", head, avg)
		}
		return head

	case containsAny(msg, forecastWords):
		if len(vals) <= 1 {
			return "No forecast data available for this location."
		}
		if avg == 0 {
			return "📊 7-day forecast data available."
		}
		return fmt.Sprintf("📊 7-day forecast available. Trend appears to be %s. Average AQI: %.1f",
			trend(vals, "worsening", "improving"), avg)
	}

	head := "Current AQI unavailable"
	if hasRealtime {
		head = "Current AQI: " + formatNumber(aqi)
	}
	foot := ""
	if hasAvg {
		foot = fmt.Sprintf(" | 7-day avg: %.1f", avg)
	}
	return fmt.Sprintf("👋 Hi! %s%s. Ask me about health recommendations, current conditions, or forecasts!", head, foot)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func mean(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// trend compares the last value with the first. up names a rise.
func trend(vals []float64, up, down string) string {
	if len(vals) < 2 {
		return ""
	}
	first, last := vals[0], vals[len(vals)-1]
	switch {
	case last > first:
		return up
	case last < first:
		return down
	default:
		return "stable"
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
