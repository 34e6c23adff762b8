package airquality

// Level describes one tier of the 0-500 EPA scale.
type Level struct {
	Name string

	// ShortName is the compact label used on the summary card.
	ShortName string

	// Icon is the emoji shown on suggestion cards; SummaryIcon on the summary card.
	Icon        string
	SummaryIcon string

	HealthAdvice string

	// ColorStart and ColorEnd form the summary card gradient.
	ColorStart string
	ColorEnd   string

	// CardType and Priority feed the overall-status suggestion card.
	CardType string
	Priority string
}

var levels = [6]Level{
	{
		Name:         "Good",
		ShortName:    "Good",
		Icon:         "🌟",
		SummaryIcon:  "😊",
		HealthAdvice: "Air quality is satisfactory, and air pollution poses little or no risk. Enjoy your outdoor activities!",
		ColorStart:   "#10b981",
		ColorEnd:     "#059669",
		CardType:     "health",
		Priority:     "low",
	},
	{
		Name:         "Moderate",
		ShortName:    "Moderate",
		Icon:         "😊",
		SummaryIcon:  "😐",
		HealthAdvice: "Air quality is acceptable. However, there may be a risk for some people, particularly those who are unusually sensitive to air pollution.",
		ColorStart:   "#f59e0b",
		ColorEnd:     "#d97706",
		CardType:     "info",
		Priority:     "medium",
	},
	{
		Name:         "Unhealthy for Sensitive Groups",
		ShortName:    "Unhealthy for Sensitive",
		Icon:         "😷",
		SummaryIcon:  "😷",
		HealthAdvice: "Members of sensitive groups may experience health effects. The general public is less likely to be affected.",
		ColorStart:   "#f97316",
		ColorEnd:     "#ea580c",
		CardType:     "warning",
		Priority:     "medium",
	},
	{
		Name:         "Unhealthy",
		ShortName:    "Unhealthy",
		Icon:         "😨",
		SummaryIcon:  "😨",
		HealthAdvice: "Some members of the general public may experience health effects; members of sensitive groups may experience more serious health effects.",
		ColorStart:   "#ef4444",
		ColorEnd:     "#dc2626",
		CardType:     "warning",
		Priority:     "high",
	},
	{
		Name:         "Very Unhealthy",
		ShortName:    "Very Unhealthy",
		Icon:         "🤢",
		SummaryIcon:  "🤢",
		HealthAdvice: "Health alert: The risk of health effects is increased for everyone. Avoid outdoor activities.",
		ColorStart:   "#a855f7",
		ColorEnd:     "#9333ea",
		CardType:     "danger",
		Priority:     "high",
	},
	{
		Name:         "Hazardous",
		ShortName:    "Hazardous",
		Icon:         "💀",
		SummaryIcon:  "💀",
		HealthAdvice: "Health warning of emergency conditions: everyone is more likely to be affected. Stay indoors!",
		ColorStart:   "#7f1d1d",
		ColorEnd:     "#991b1b",
		CardType:     "danger",
		Priority:     "high",
	},
}

// tierIndex returns 0..5 for the EPA tiers ≤50, ≤100, ≤150, ≤200, ≤300, above.
func tierIndex(aqi float64) int {
	switch {
	case aqi <= 50:
		return 0
	case aqi <= 100:
		return 1
	case aqi <= 150:
		return 2
	case aqi <= 200:
		return 3
	case aqi <= 300:
		return 4
	default:
		return 5
	}
}

// LevelFor returns the EPA tier for a 0-500 value.
func LevelFor(aqi float64) Level {
	return levels[tierIndex(aqi)]
}

// Tier returns the zero-based EPA tier index for a 0-500 value.
func Tier(aqi float64) int {
	return tierIndex(aqi)
}
