package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/geo/nominatim"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/suggestion"
	"github.com/breatheroute/airwatch/internal/telemetry"
)

type recordingView struct {
	mu      sync.Mutex
	calls   []string
	markers []dashboard.Marker
	zone    *dashboard.ZoneOverlay
	chart   dashboard.ChartSeries
	panel   dashboard.PollutantPanel
	weather dashboard.WeatherWidget
	place   string
	cards   []suggestion.Card
	err     *dashboard.LoadError
	center  geo.Coordinate
}

func (v *recordingView) record(name string) {
	v.calls = append(v.calls, name)
}

func (v *recordingView) CenterMap(c geo.Coordinate, _ int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("CenterMap")
	v.center = c
}

func (v *recordingView) SetMarker(m dashboard.Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetMarker")
	v.markers = append(v.markers, m)
}

func (v *recordingView) ClearZoneOverlay() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("ClearZoneOverlay")
	v.zone = nil
}

func (v *recordingView) SetZoneOverlay(z dashboard.ZoneOverlay) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetZoneOverlay")
	v.zone = &z
}

func (v *recordingView) SetChartSeries(s dashboard.ChartSeries) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetChartSeries")
	v.chart = s
}

func (v *recordingView) SetPollutantPanel(p dashboard.PollutantPanel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetPollutantPanel")
	v.panel = p
}

func (v *recordingView) SetWeatherWidget(w dashboard.WeatherWidget) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetWeatherWidget")
	v.weather = w
}

func (v *recordingView) SetPlaceName(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.place = name
}

func (v *recordingView) SetLastUpdated(time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetLastUpdated")
}

func (v *recordingView) SetSuggestionCards(cards []suggestion.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetSuggestionCards")
	v.cards = cards
}

func (v *recordingView) ShowError(e dashboard.LoadError) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("ShowError")
	v.err = &e
}

func (v *recordingView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

func (v *recordingView) Place() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.place
}

type fakeFetcher struct {
	payload *aggregate.Payload
	err     error
	calls   atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, _ geo.Coordinate) (*aggregate.Payload, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakeSuggester struct {
	text     string
	fallback bool
}

func (f fakeSuggester) SuggestOrFallback(context.Context, *aggregate.Payload) (string, bool) {
	return f.text, f.fallback
}

type fakePlaces struct {
	place *nominatim.Place
	err   error
	wait  chan struct{}
}

func (f *fakePlaces) Reverse(_ context.Context, _ geo.Coordinate) (*nominatim.Place, error) {
	if f.wait != nil {
		<-f.wait
	}
	return f.place, f.err
}

type recordingStatus struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingStatus) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordingStatus) Debug(string)               {}
func (s *recordingStatus) Notify(status.Kind, string) {}

func (s *recordingStatus) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[len(s.lines)-1]
}

type cycleRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *cycleRecorder) RecordCycle(_ context.Context, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 5, 0, time.Local) }

func scenarioPayload() *aggregate.Payload {
	return &aggregate.Payload{
		RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(120), Source: "ow"},
		Pollutants: aggregate.Pollutants{OpenWeather: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 40,
		}},
		DailyAQI: []aggregate.DailyPoint{},
	}
}

func TestDashboard_Load(t *testing.T) {
	view := &recordingView{}
	sink := &recordingStatus{}
	metrics := &cycleRecorder{}
	places := &fakePlaces{place: &nominatim.Place{
		DisplayName: "New Delhi, Delhi, India",
		Address:     nominatim.Address{City: "New Delhi", State: "Delhi", Country: "India"},
	}}

	d := dashboard.New(dashboard.Config{
		Fetcher:   &fakeFetcher{payload: scenarioPayload()},
		View:      view,
		Places:    places,
		Suggester: fakeSuggester{text: "ok"},
		Status:    sink,
		Metrics:   metrics,
		Logger:    zerolog.Nop(),
		Now:       fixedNow,
	})

	coord := geo.Coordinate{Lat: 28.6139, Lon: 77.2090}
	require.NoError(t, d.Load(context.Background(), coord))
	d.Wait()

	assert.Equal(t, []string{
		"CenterMap",
		"SetMarker",
		"ClearZoneOverlay",
		"SetZoneOverlay",
		"SetMarker",
		"SetChartSeries",
		"SetPollutantPanel",
		"SetWeatherWidget",
		"SetLastUpdated",
		"SetSuggestionCards",
	}, view.Calls())

	assert.Equal(t, coord, view.center)
	require.NotNil(t, view.zone)
	assert.Equal(t, airquality.ColorUnhealthySensitive, view.zone.Color)
	assert.Equal(t, "120", view.markers[1].Badge)
	assert.Equal(t, []string{"Now"}, view.chart.Labels)
	assert.False(t, view.weather.Available)

	require.GreaterOrEqual(t, len(view.cards), 3)
	assert.Equal(t, "Air Quality: Unhealthy for Sensitive Groups", view.cards[0].Title)
	assert.Equal(t, "High PM2.5 Detected", view.cards[1].Title)
	assert.Equal(t, "Limit Outdoor Exposure", view.cards[2].Title)

	assert.Equal(t, "New Delhi, India", view.Place())
	assert.Equal(t, "Loaded successfully at 12:00:05", sink.last())
	assert.Equal(t, []string{telemetry.OutcomeSuccess}, metrics.outcomes)

	state := d.State()
	assert.InDelta(t, 28.6139, state.Coordinate.Lat, 1e-4)
	assert.InDelta(t, 77.2090, state.Coordinate.Lon, 1e-4)
	assert.Equal(t, "New Delhi, India", state.PlaceName)
	assert.Len(t, state.Cards, len(view.cards))
}

func TestDashboard_Load_FetchFailureMutatesNothing(t *testing.T) {
	view := &recordingView{}
	sink := &recordingStatus{}
	metrics := &cycleRecorder{}
	fetcher := &fakeFetcher{err: &aggregate.NetworkError{StatusCode: 502, Status: "Bad Gateway", Body: "upstream"}}

	d := dashboard.New(dashboard.Config{
		Fetcher: fetcher,
		View:    view,
		Status:  sink,
		Metrics: metrics,
		Logger:  zerolog.Nop(),
		Now:     fixedNow,
	})

	err := d.Load(context.Background(), geo.Default)
	require.Error(t, err)

	assert.Equal(t, []string{"ShowError"}, view.Calls())
	require.NotNil(t, view.err)
	assert.Equal(t, "NetworkError", view.err.Kind)
	assert.Equal(t, "API returned 502: Bad Gateway - upstream", view.err.Message)
	assert.Equal(t, fixedNow(), view.err.At)
	assert.Equal(t, "Failed to load: API returned 502: Bad Gateway - upstream", sink.last())
	assert.Equal(t, []string{telemetry.OutcomeError}, metrics.outcomes)
	assert.Nil(t, d.State().Payload)
}

func TestDashboard_Load_FailureKeepsPreviousState(t *testing.T) {
	view := &recordingView{}
	fetcher := &fakeFetcher{payload: scenarioPayload()}
	d := dashboard.New(dashboard.Config{Fetcher: fetcher, View: view, Logger: zerolog.Nop(), Now: fixedNow})

	require.NoError(t, d.Load(context.Background(), geo.Default))
	before := d.State()

	fetcher.err = errors.New("boom")
	require.Error(t, d.Load(context.Background(), geo.Coordinate{Lat: 1, Lon: 2}))

	after := d.State()
	assert.Same(t, before.Payload, after.Payload)
	assert.Equal(t, before.Coordinate, after.Coordinate)
	assert.Equal(t, before.Chart, after.Chart)
}

func TestDashboard_Load_InvalidCoordinate(t *testing.T) {
	view := &recordingView{}
	fetcher := &fakeFetcher{payload: scenarioPayload()}
	d := dashboard.New(dashboard.Config{Fetcher: fetcher, View: view, Logger: zerolog.Nop(), Now: fixedNow})

	err := d.Load(context.Background(), geo.Coordinate{Lat: 91, Lon: 0})

	var valErr *geo.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, int32(0), fetcher.calls.Load())
	assert.Equal(t, "ValidationError", view.err.Kind)
}

func TestDashboard_Load_HeuristicSuggestion(t *testing.T) {
	sink := &recordingStatus{}
	metrics := &cycleRecorder{}
	d := dashboard.New(dashboard.Config{
		Fetcher:   &fakeFetcher{payload: scenarioPayload()},
		View:      &recordingView{},
		Suggester: fakeSuggester{text: suggestion.FallbackText, fallback: true},
		Status:    sink,
		Metrics:   metrics,
		Logger:    zerolog.Nop(),
		Now:       fixedNow,
	})

	require.NoError(t, d.Load(context.Background(), geo.Default))
	assert.Equal(t, "Loaded with heuristic suggestion at 12:00:05", sink.last())
	assert.Equal(t, []string{telemetry.OutcomeHeuristic}, metrics.outcomes)
}

func TestDashboard_Load_NoRealtimeClearsOverlay(t *testing.T) {
	view := &recordingView{}
	d := dashboard.New(dashboard.Config{
		Fetcher: &fakeFetcher{payload: &aggregate.Payload{}},
		View:    view,
		Logger:  zerolog.Nop(),
		Now:     fixedNow,
	})

	require.NoError(t, d.Load(context.Background(), geo.Default))

	calls := view.Calls()
	assert.Contains(t, calls, "ClearZoneOverlay")
	assert.NotContains(t, calls, "SetZoneOverlay")
	assert.Nil(t, view.zone)
	assert.Len(t, view.markers, 1)
	assert.Empty(t, view.markers[0].Badge)
}

func TestDashboard_PlaceNameFallback(t *testing.T) {
	view := &recordingView{}
	d := dashboard.New(dashboard.Config{
		Fetcher: &fakeFetcher{payload: scenarioPayload()},
		View:    view,
		Places:  &fakePlaces{err: &geo.UpstreamDataError{Provider: "nominatim", Field: "display_name"}},
		Logger:  zerolog.Nop(),
		Now:     fixedNow,
	})

	require.NoError(t, d.Load(context.Background(), geo.Coordinate{Lat: 10.5, Lon: -20.25}))
	d.Wait()

	assert.Equal(t, "10.50°, -20.25°", view.Place())
}

type coordFetcher struct{}

func (coordFetcher) Fetch(_ context.Context, coord geo.Coordinate) (*aggregate.Payload, error) {
	time.Sleep(time.Duration(int(coord.Lat)%5) * time.Millisecond)
	p := scenarioPayload()
	p.RealtimeAQI.AQI = ptr(coord.Lat)
	return p, nil
}

func TestDashboard_ConcurrentLoadsLastResponseWins(t *testing.T) {
	view := &recordingView{}
	d := dashboard.New(dashboard.Config{
		Fetcher:   coordFetcher{},
		View:      view,
		Suggester: fakeSuggester{text: "ok"},
		Status:    &recordingStatus{},
		Metrics:   &cycleRecorder{},
		Logger:    zerolog.Nop(),
		Now:       fixedNow,
	})

	const cycles = 20
	loaded := make(map[geo.Coordinate]bool, cycles)
	var wg sync.WaitGroup
	for i := range cycles {
		coord := geo.Coordinate{Lat: float64(i), Lon: float64(i)}
		loaded[coord] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Load(context.Background(), coord))
		}()
	}
	wg.Wait()
	d.Wait()

	state := d.State()
	assert.True(t, loaded[state.Coordinate], "final coordinate %s was never loaded", state.Coordinate)
	require.NotNil(t, state.Payload)
	v, _, ok := state.Payload.Realtime()
	require.True(t, ok)
	assert.Equal(t, state.Coordinate.Lat, v)
}

func TestDashboard_PlaceNameDoesNotBlockCycle(t *testing.T) {
	view := &recordingView{}
	places := &fakePlaces{
		place: &nominatim.Place{DisplayName: "Somewhere"},
		wait:  make(chan struct{}),
	}
	d := dashboard.New(dashboard.Config{
		Fetcher: &fakeFetcher{payload: scenarioPayload()},
		View:    view,
		Places:  places,
		Logger:  zerolog.Nop(),
		Now:     fixedNow,
	})

	require.NoError(t, d.Load(context.Background(), geo.Default))
	assert.Contains(t, view.Calls(), "SetSuggestionCards")
	assert.Empty(t, view.Place())

	close(places.wait)
	d.Wait()
	assert.Equal(t, "Somewhere", view.Place())
}

func TestDashboard_SuggestionIsIdempotent(t *testing.T) {
	view := &recordingView{}
	d := dashboard.New(dashboard.Config{
		Fetcher: &fakeFetcher{payload: scenarioPayload()},
		View:    view,
		Logger:  zerolog.Nop(),
		Now:     fixedNow,
	})

	require.NoError(t, d.Load(context.Background(), geo.Default))
	first := d.State().Cards
	require.NoError(t, d.Load(context.Background(), geo.Default))
	assert.Equal(t, first, d.State().Cards)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "GeolocationError", dashboard.ErrorKind(&geo.GeolocationError{Code: geo.Timeout}))
	assert.Equal(t, "UpstreamDataError", dashboard.ErrorKind(&geo.UpstreamDataError{}))
	assert.Equal(t, "Error", dashboard.ErrorKind(errors.New("x")))
}
