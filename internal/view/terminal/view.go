// Package terminal renders dashboard surfaces as plain text.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/suggestion"
)

// pixelsPerColumn converts a layout width in pixels to text columns.
const pixelsPerColumn = 8

// View writes each surface update to an io.Writer. It is safe for
// concurrent use; the place name arrives on its own goroutine.
type View struct {
	mu    sync.Mutex
	w     io.Writer
	wrap  int
	panel int
}

// NewView creates a view writing to w with the given column widths in pixels.
func NewView(w io.Writer, leftWidth, rightWidth int) *View {
	v := &View{w: w}
	v.SetLayout(leftWidth, rightWidth)
	return v
}

// SetLayout changes the wrap widths. The left column holds suggestion and
// chat text; the right column holds the pollutant panel.
func (v *View) SetLayout(leftWidth, rightWidth int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wrap = max(leftWidth/pixelsPerColumn, 20)
	v.panel = max(rightWidth/pixelsPerColumn, 20)
}

func (v *View) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.w, format, args...)
}

// CenterMap implements dashboard.ViewPort.
func (v *View) CenterMap(center geo.Coordinate, zoom int) {
	v.printf("🗺️  map %s (zoom %d)\n", geo.CoordinateLabel(center), zoom)
}

// SetMarker implements dashboard.ViewPort.
func (v *View) SetMarker(m dashboard.Marker) {
	if m.Badge == "" {
		return
	}
	v.printf("📌 AQI badge %s (%s)\n", m.Badge, m.Color)
}

// ClearZoneOverlay implements dashboard.ViewPort.
func (v *View) ClearZoneOverlay() {}

// SetZoneOverlay implements dashboard.ViewPort.
func (v *View) SetZoneOverlay(z dashboard.ZoneOverlay) {
	v.printf("⭕ %s (AQI %g, %.0fm)\n", z.Description, z.AQI, z.Radius)
}

// SetChartSeries implements dashboard.ViewPort.
func (v *View) SetChartSeries(s dashboard.ChartSeries) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.w, "📈 %s\n", s.Label)
	for i := range s.Labels {
		fmt.Fprintf(v.w, "   %-12s %6.2f %s\n", s.Labels[i], s.Values[i], bar(s.Values[i], 5, 20))
	}
}

// SetPollutantPanel implements dashboard.ViewPort.
func (v *View) SetPollutantPanel(p dashboard.PollutantPanel) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p.Summary != nil {
		fmt.Fprintf(v.w, "%s AQI %.0f %s\n", p.Summary.Level.SummaryIcon, p.Summary.Value, p.Summary.Level.ShortName)
	}
	width := max(v.panel-40, 10)
	for _, c := range p.Cards {
		fmt.Fprintf(v.w, "   %-7s %9.2f %-6s %-9s %s\n", c.Name, c.Value, c.Unit, c.Status, bar(c.Percentage, 100, width))
	}
}

// SetWeatherWidget implements dashboard.ViewPort.
func (v *View) SetWeatherWidget(w dashboard.WeatherWidget) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.w, "%s %s %s\n", w.Emoji, w.Headline, w.Description)
	for _, d := range w.Details {
		fmt.Fprintf(v.w, "   %s\n", d)
	}
}

// SetPlaceName implements dashboard.ViewPort.
func (v *View) SetPlaceName(name string) {
	v.printf("📍 %s\n", name)
}

// SetLastUpdated implements dashboard.ViewPort.
func (v *View) SetLastUpdated(at time.Time) {
	v.printf("🕒 Last updated %s\n", at.Format(time.TimeOnly))
}

// SetSuggestionCards implements dashboard.ViewPort.
func (v *View) SetSuggestionCards(cards []suggestion.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, c := range cards {
		title := c.Title
		if c.Important() {
			title += " [Important]"
		}
		fmt.Fprintf(v.w, "%s %s\n", c.Icon, title)
		for _, line := range Wrap(c.Content, v.wrap) {
			fmt.Fprintf(v.w, "   %s\n", line)
		}
	}
}

// ShowError implements dashboard.ViewPort.
func (v *View) ShowError(e dashboard.LoadError) {
	v.printf("❌ %s: %s (%s)\n", e.Kind, e.Message, e.At.Format(time.TimeOnly))
}

// PrintEvent writes status board events. Subscribe it with status.Board.Subscribe.
func (v *View) PrintEvent(e status.Event) {
	switch e.Type {
	case "status":
		v.printf("» %s\n", e.Text)
	case "toast":
		v.printf("[%s] %s\n", e.Kind, e.Text)
	}
}

// Println writes free text wrapped to the left column.
func (v *View) Println(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, line := range Wrap(text, v.wrap) {
		fmt.Fprintln(v.w, line)
	}
}

// Wrap splits text into lines of at most width runes, breaking on spaces.
// Words longer than width get a line of their own.
func Wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

func bar(value, full float64, width int) string {
	if full <= 0 || width <= 0 {
		return ""
	}
	n := int(value / full * float64(width))
	n = max(0, min(width, n))
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

var _ dashboard.ViewPort = (*View)(nil)
