package mqttview

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/suggestion"
)

// DefaultPrefix is the topic prefix when none is configured.
const DefaultPrefix = "airwatch/dashboard"

// Topic suffixes.
const (
	TopicStatus      = "status"
	TopicDebug       = "debug"
	TopicToast       = "toast"
	TopicMap         = "map"
	TopicMarker      = "marker"
	TopicZone        = "zone"
	TopicChart       = "chart"
	TopicPollutants  = "pollutants"
	TopicWeather     = "weather"
	TopicPlace       = "place"
	TopicUpdated     = "updated"
	TopicSuggestions = "suggestions"
	TopicError       = "error"
)

// Publisher sends one message. *Client implements it.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// ViewConfig holds configuration for the MQTT view.
type ViewConfig struct {
	Publisher Publisher

	// Prefix is prepended to every topic (default: DefaultPrefix).
	Prefix string

	Logger zerolog.Logger
}

// View implements dashboard.ViewPort and status.Sink by publishing JSON
// documents. Surface topics are retained so a display that connects late
// sees the latest state; debug lines and toasts are not.
type View struct {
	pub    Publisher
	prefix string
	logger zerolog.Logger
}

// NewView creates an MQTT view.
func NewView(cfg ViewConfig) *View {
	prefix := strings.TrimRight(cfg.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &View{pub: cfg.Publisher, prefix: prefix, logger: cfg.Logger}
}

// Topic returns the full topic for suffix.
func (v *View) Topic(suffix string) string {
	return v.prefix + "/" + suffix
}

func (v *View) publish(suffix string, retained bool, doc any) {
	payload, err := json.Marshal(doc)
	if err != nil {
		v.logger.Error().Err(err).Str("topic", suffix).Msg("encoding view update")
		return
	}
	topic := v.Topic(suffix)
	if err := v.pub.Publish(topic, payload, retained); err != nil {
		v.logger.Warn().Err(err).Str("topic", topic).Msg("publishing view update")
		return
	}
	v.logger.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("published view update")
}

type mapDoc struct {
	Center geo.Coordinate `json:"center"`
	Zoom   int            `json:"zoom"`
}

type textDoc struct {
	Text string     `json:"text"`
	At   *time.Time `json:"at,omitempty"`
}

type toastDoc struct {
	Kind status.Kind `json:"kind"`
	Text string      `json:"text"`
}

type zoneDoc struct {
	Visible bool                   `json:"visible"`
	Zone    *dashboard.ZoneOverlay `json:"zone,omitempty"`
}

// CenterMap implements dashboard.ViewPort.
func (v *View) CenterMap(center geo.Coordinate, zoom int) {
	v.publish(TopicMap, true, mapDoc{Center: center, Zoom: zoom})
}

// SetMarker implements dashboard.ViewPort.
func (v *View) SetMarker(m dashboard.Marker) {
	v.publish(TopicMarker, true, m)
}

// ClearZoneOverlay implements dashboard.ViewPort.
func (v *View) ClearZoneOverlay() {
	v.publish(TopicZone, true, zoneDoc{})
}

// SetZoneOverlay implements dashboard.ViewPort.
func (v *View) SetZoneOverlay(z dashboard.ZoneOverlay) {
	v.publish(TopicZone, true, zoneDoc{Visible: true, Zone: &z})
}

// SetChartSeries implements dashboard.ViewPort.
func (v *View) SetChartSeries(s dashboard.ChartSeries) {
	v.publish(TopicChart, true, s)
}

// SetPollutantPanel implements dashboard.ViewPort.
func (v *View) SetPollutantPanel(p dashboard.PollutantPanel) {
	v.publish(TopicPollutants, true, p)
}

// SetWeatherWidget implements dashboard.ViewPort.
func (v *View) SetWeatherWidget(w dashboard.WeatherWidget) {
	v.publish(TopicWeather, true, w)
}

// SetPlaceName implements dashboard.ViewPort.
func (v *View) SetPlaceName(name string) {
	v.publish(TopicPlace, true, textDoc{Text: name})
}

// SetLastUpdated implements dashboard.ViewPort.
func (v *View) SetLastUpdated(at time.Time) {
	v.publish(TopicUpdated, true, textDoc{Text: at.Format(time.TimeOnly), At: &at})
}

// SetSuggestionCards implements dashboard.ViewPort.
func (v *View) SetSuggestionCards(cards []suggestion.Card) {
	if cards == nil {
		cards = []suggestion.Card{}
	}
	v.publish(TopicSuggestions, true, cards)
}

// ShowError implements dashboard.ViewPort.
func (v *View) ShowError(e dashboard.LoadError) {
	v.publish(TopicError, false, e)
}

// SetStatus implements status.Sink.
func (v *View) SetStatus(text string) {
	v.publish(TopicStatus, true, textDoc{Text: text})
}

// Debug implements status.Sink.
func (v *View) Debug(text string) {
	v.publish(TopicDebug, false, textDoc{Text: text})
}

// Notify implements status.Sink.
func (v *View) Notify(kind status.Kind, text string) {
	v.publish(TopicToast, false, toastDoc{Kind: kind, Text: text})
}

var (
	_ dashboard.ViewPort = (*View)(nil)
	_ status.Sink        = (*View)(nil)
	_ Publisher          = (*Client)(nil)
)
