package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/chat"
	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/geo/nominatim"
	"github.com/breatheroute/airwatch/internal/insights"
	"github.com/breatheroute/airwatch/internal/preferences"
	"github.com/breatheroute/airwatch/internal/scheduler"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/timeline"
	"github.com/breatheroute/airwatch/internal/view/terminal"
)

const helpText = `commands:
  load [lat lon]        reload the current location or load a coordinate
  search <place>        geocode a place and load the first match
  weather <city>        show current weather for a city and load it
  chat <message>        ask the assistant about the loaded data
  clear                 clear the chat transcript
  auto                  toggle auto refresh
  layout <L> <R>        set column widths in pixels
  layout preset <name>  apply a layout preset
  layout reset          restore the default layout
  insight <kind>        call an insight endpoint (insight list for names)
  timeline              play the 24 hour forecast timeline
  timeline <action>     play, pause, toggle, step, reset, speed <x>, jump <n>
  timeline stop         close the timeline
  quit                  exit`

// timelineKind is the insight that returns the hourly forecast frames.
const timelineKind = "nasa/24hour-hourly"

type app struct {
	dash     *dashboard.Dashboard
	fetcher  *aggregate.Fetcher
	view     *terminal.View
	board    *status.Board
	places   *nominatim.Client
	layouts  *preferences.Service
	insights *insights.Client
	chat     *chat.Session
	auto     *scheduler.AutoRefresh
	log      zerolog.Logger

	mu     sync.Mutex
	coord  geo.Coordinate
	player *timeline.Player
}

func (a *app) current() geo.Coordinate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coord
}

func (a *app) load(ctx context.Context, coord geo.Coordinate) {
	a.mu.Lock()
	a.coord = coord
	a.mu.Unlock()

	// Failures are already shown through the status line and error view.
	_ = a.dash.Load(ctx, coord)
}

// handle runs one stdin command and reports whether to keep reading.
func (a *app) handle(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return false
	case "help":
		a.view.Println(helpText)
	case "load":
		a.handleLoad(ctx, rest)
	case "search":
		if coord, ok := a.search(ctx, rest); ok {
			a.load(ctx, coord)
		}
	case "weather":
		a.handleWeather(ctx, rest)
	case "chat":
		a.handleChat(ctx, rest)
	case "clear":
		a.chat.Clear()
		a.board.SetStatus("Chat cleared")
	case "auto":
		a.auto.Toggle(ctx)
	case "layout":
		a.handleLayout(ctx, rest)
	case "insight":
		a.handleInsight(ctx, rest)
	case "timeline":
		a.handleTimeline(ctx, rest)
	default:
		a.board.Notify(status.KindError, fmt.Sprintf("unknown command %q, type help", cmd))
	}
	return true
}

func (a *app) handleLoad(ctx context.Context, args string) {
	if args == "" {
		a.load(ctx, a.current())
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		a.board.Notify(status.KindError, "usage: load <lat> <lon>")
		return
	}
	coord, err := geo.ParseCoordinate(fields[0], fields[1])
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	a.load(ctx, coord)
}

func (a *app) search(ctx context.Context, query string) (geo.Coordinate, bool) {
	results, err := a.places.Search(ctx, query)
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return geo.Coordinate{}, false
	}
	for i, p := range results {
		a.view.Println(fmt.Sprintf("%d. %s", i+1, p.DisplayName))
	}
	first := results[0]
	a.board.SetStatus("📍 " + dashboard.ShortenPlaceName(first.DisplayName))
	return first.Coordinate, true
}

func (a *app) handleWeather(ctx context.Context, city string) {
	if city == "" {
		a.board.Notify(status.KindError, "usage: weather <city>")
		return
	}
	a.board.SetStatus("Fetching weather for " + city + "...")
	cw, err := a.fetcher.FetchCity(ctx, city)
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	a.view.Println("🌤️ " + dashboard.LegacyWeatherLine(cw.Weather))
	a.view.CenterMap(cw.Coordinate, geo.DetectedZoom)
	a.load(ctx, cw.Coordinate)
}

func (a *app) handleChat(ctx context.Context, message string) {
	reply, err := a.chat.Send(ctx, message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		a.board.Notify(status.KindError, "usage: chat <message>")
	case err != nil:
		a.board.Notify(status.KindError, err.Error())
	default:
		a.view.Println("🤖 " + reply)
	}
}

func (a *app) handleLayout(ctx context.Context, args string) {
	fields := strings.Fields(args)

	var (
		layout preferences.Layout
		err    error
	)
	switch {
	case len(fields) == 1 && fields[0] == "reset":
		layout, err = a.layouts.ResetLayout(ctx)
	case len(fields) >= 2 && fields[0] == "preset":
		preset, ok := preferences.LookupPreset(strings.Join(fields[1:], " "))
		if !ok {
			a.board.Notify(status.KindError, "unknown preset "+strings.Join(fields[1:], " "))
			return
		}
		layout, err = a.layouts.SaveLayout(ctx, preset)
	case len(fields) == 2:
		var l, r int
		if l, err = parseWidth(fields[0]); err == nil {
			if r, err = parseWidth(fields[1]); err == nil {
				layout, err = a.layouts.SaveLayout(ctx, preferences.Layout{LeftWidth: l, RightWidth: r})
			}
		}
	default:
		a.board.Notify(status.KindError, "usage: layout <L> <R> | layout preset <name> | layout reset")
		return
	}
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	a.view.SetLayout(layout.LeftWidth, layout.RightWidth)
}

func (a *app) handleInsight(ctx context.Context, kind string) {
	if kind == "" || kind == "list" {
		a.view.Println("insights: " + strings.Join(insights.Kinds(), ", "))
		return
	}
	a.board.SetStatus("Loading " + kind + "...")
	raw, err := a.insights.Fetch(ctx, kind, a.current())
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	a.board.SetStatus("✅ " + kind)
	a.view.Println(insights.Render(raw))
}

func (a *app) handleTimeline(ctx context.Context, args string) {
	switch args {
	case "stop":
		a.stopTimeline()
		return
	case "":
	default:
		a.controlTimeline(args)
		return
	}

	raw, err := a.insights.Fetch(ctx, timelineKind, a.current())
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	frames, err := timeline.ParseFrames(raw)
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}

	a.stopTimeline()
	player := timeline.NewPlayer(timeline.PlayerConfig{
		Frames: frames,
		OnFrame: func(i int, f timeline.Frame) {
			a.view.Println(fmt.Sprintf("[%d/%d] %s", i+1, len(frames), f))
		},
		Logger: a.log,
	})
	a.mu.Lock()
	a.player = player
	a.mu.Unlock()

	if err := player.Show(); err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	if err := player.Play(); err != nil {
		a.board.Notify(status.KindError, err.Error())
	}
}

func (a *app) controlTimeline(args string) {
	a.mu.Lock()
	player := a.player
	a.mu.Unlock()
	if player == nil {
		a.board.Notify(status.KindError, "no timeline loaded, run timeline first")
		return
	}

	c, err := timeline.ParseControl(args)
	if err == nil {
		err = player.Apply(c)
	}
	if err != nil {
		a.board.Notify(status.KindError, err.Error())
		return
	}
	a.board.SetStatus(fmt.Sprintf("⏱️ %s, %.1fx, %s", player.State(), player.Speed(), player.Progress()))
}

func (a *app) stopTimeline() {
	a.mu.Lock()
	player := a.player
	a.player = nil
	a.mu.Unlock()
	if player != nil {
		player.Pause()
	}
}
