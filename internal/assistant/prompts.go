package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/breatheroute/airwatch/internal/aggregate"
)

const chatSystemPrompt = `You are AirQuality AI, a friendly and knowledgeable air quality assistant.

Your personality:
- Helpful, empathetic, and health-focused
- Use emojis appropriately (🌬️💨🏃‍♀️🌳 etc.)
- Keep responses concise but informative
- Always prioritize health and safety

Your knowledge areas:
- Air quality interpretation (AQI scales, pollutants)
- Health recommendations based on air quality
- Air pollution sources and mitigation
- Weather impacts on air quality

Response guidelines:
- Use bullet points for multiple suggestions
- Provide specific, actionable advice
- Reference the current data when available
- Explain AQI scales when relevant (OpenWeather uses 1-5, EPA uses 0-500)
- Be encouraging when air quality is good, cautious when poor`

// SuggestionPrompt asks for a short bullet-point summary of the payload.
func SuggestionPrompt(p *aggregate.Payload) string {
	var location, realtime any
	var daily []aggregate.DailyPoint
	var pollutants aggregate.Pollutants
	if p != nil {
		if p.Location != nil {
			location = p.Location
		}
		if p.RealtimeAQI != nil {
			realtime = p.RealtimeAQI
		}
		daily = p.DailyAQI
		pollutants = p.Pollutants
	}

	var b strings.Builder
	b.WriteString("Act as a friendly air-quality chatbot.\n")
	b.WriteString("Answer conversationally with short bullet points.\n")
	b.WriteString("Include: current AQI (and source), short 7-day outlook, and health tips.\n\n")
	fmt.Fprintf(&b, "Location: %s\n", compactJSON(location))
	fmt.Fprintf(&b, "Realtime: %s\n", compactJSON(realtime))
	fmt.Fprintf(&b, "7-day AQI: %s\n", compactJSON(daily))
	fmt.Fprintf(&b, "Pollutants: %s\n", compactJSON(pollutants))
	return b.String()
}

// ChatPrompt builds the conversation prompt: system text, current data,
// history, and the new message.
func ChatPrompt(message string, history []Turn, p *aggregate.Payload) string {
	var data strings.Builder
	if aqi, _, ok := p.Realtime(); ok {
		fmt.Fprintf(&data, "\nCurrent AQI: %s (OpenWeather 1-5 scale)", formatNumber(aqi))
	}
	if p != nil && p.Location != nil {
		if c := p.Location.Coordinate; c != nil {
			fmt.Fprintf(&data, "\nLocation: %s, %s", formatNumber(c.Lat), formatNumber(c.Lon))
		} else if p.Location.Label != "" {
			fmt.Fprintf(&data, "\nLocation: %s", p.Location.Label)
		}
	}
	if vals := p.DailyValues(); len(vals) > 0 {
		t := trend(vals, "worsening", "improving")
		if t == "" {
			t = "stable"
		}
		fmt.Fprintf(&data, "\n7-day trend: %s", t)
	}

	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	b.WriteString("\n\nCurrent air quality data:")
	b.WriteString(data.String())
	b.WriteString("\n\nConversation:")
	for _, h := range history {
		role := h.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&b, "\n%s: %s", role, h.Content)
	}
	fmt.Fprintf(&b, "\nuser: %s\nassistant:", message)
	return b.String()
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
