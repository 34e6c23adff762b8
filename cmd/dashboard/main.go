// Package main provides the interactive terminal dashboard.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/chat"
	"github.com/breatheroute/airwatch/internal/config"
	"github.com/breatheroute/airwatch/internal/dashboard"
	"github.com/breatheroute/airwatch/internal/database"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/geo/nominatim"
	"github.com/breatheroute/airwatch/internal/insights"
	"github.com/breatheroute/airwatch/internal/preferences"
	"github.com/breatheroute/airwatch/internal/scheduler"
	"github.com/breatheroute/airwatch/internal/status"
	"github.com/breatheroute/airwatch/internal/suggestion"
	"github.com/breatheroute/airwatch/internal/telemetry"
	"github.com/breatheroute/airwatch/internal/view/terminal"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	var (
		latFlag    = flag.String("lat", "", "latitude to load instead of locating")
		lonFlag    = flag.String("lon", "", "longitude to load instead of locating")
		searchFlag = flag.String("search", "", "place name to search and load")
		autoFlag   = flag.Bool("auto", false, "start with auto refresh enabled")
		backend    = flag.String("backend", "", "backend base URL (overrides BACKEND_URL)")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().
		Timestamp().
		Str("service", "airwatch-dashboard").
		Logger().
		Level(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *backend != "" {
		cfg.Backend.URL = *backend
	}
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil && level > zerolog.InfoLevel {
		log = log.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	board := status.NewBoard(status.BoardConfig{Logger: log})

	layouts, closeStore := openLayouts(ctx, cfg, board, log)
	defer closeStore()
	layout, err := layouts.Layout(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not read layout, using default")
		layout = preferences.DefaultLayout
	}

	view := terminal.NewView(os.Stdout, layout.LeftWidth, layout.RightWidth)
	board.Subscribe(view.PrintEvent)

	fetcher := aggregate.NewFetcher(aggregate.FetcherConfig{BaseURL: cfg.Backend.URL, Logger: log})
	places := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:   cfg.Providers.NominatimBaseURL,
		UserAgent: cfg.Providers.UserAgent,
		Logger:    log,
	})

	cycles, err := telemetry.NewRefreshMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("refresh metrics unavailable")
	}
	var recorder dashboard.CycleRecorder
	if cycles != nil {
		recorder = cycles
	}

	dash := dashboard.New(dashboard.Config{
		Fetcher:   fetcher,
		View:      view,
		Places:    places,
		Suggester: suggestion.NewClient(suggestion.ClientConfig{BaseURL: cfg.Backend.URL, Logger: log}),
		Status:    board,
		Metrics:   recorder,
		Logger:    log,
	})

	a := &app{
		dash:     dash,
		fetcher:  fetcher,
		view:     view,
		board:    board,
		places:   places,
		layouts:  layouts,
		insights: insights.NewClient(insights.ClientConfig{BaseURL: cfg.Backend.URL, Logger: log}),
		chat: chat.NewSession(chat.SessionConfig{
			BaseURL: cfg.Backend.URL,
			Context: fetcher,
			Logger:  log,
		}),
		log: log,
	}
	a.auto = scheduler.NewAutoRefresh(scheduler.AutoRefreshConfig{
		Trigger:  func(ctx context.Context) error { return a.dash.Load(ctx, a.current()) },
		Interval: cfg.Dashboard.AutoRefresh,
		Status:   board,
		Logger:   log,
	})
	defer a.auto.Stop()
	defer a.stopTimeline()

	view.Println(fmt.Sprintf("AirWatch dashboard %s - backend %s", Version, cfg.Backend.URL))

	start, err := a.initialCoordinate(ctx, *latFlag, *lonFlag, *searchFlag, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid start location")
	}
	a.load(ctx, start)

	if *autoFlag {
		a.auto.Start(ctx)
	}

	view.Println(helpText)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			a.dash.Wait()
			return
		case line, ok := <-lines:
			if !ok || !a.handle(ctx, line) {
				a.dash.Wait()
				return
			}
		}
	}
}

// initialCoordinate prefers -lat/-lon, then -search, then device location.
// The flags go through the resolver as a static locator ahead of the IP
// lookup. A bad -lat/-lon is a usage error.
func (a *app) initialCoordinate(ctx context.Context, lat, lon, search string, cfg *config.Config) (geo.Coordinate, error) {
	if search != "" && lat == "" && lon == "" {
		if coord, ok := a.search(ctx, search); ok {
			return coord, nil
		}
	}

	var chain geo.ChainLocator
	if lat != "" || lon != "" {
		coord, err := geo.ParseCoordinate(lat, lon)
		if err != nil {
			return geo.Coordinate{}, err
		}
		chain = append(chain, geo.StaticLocator{Position: geo.Position{Coordinate: coord}})
	}
	chain = append(chain, geo.NewIPLocator(geo.IPLocatorConfig{URL: cfg.Providers.IPAPIURL, Logger: a.log}))

	resolver := geo.NewResolver(geo.ResolverConfig{
		Locator: chain,
		Status:  a.board,
		Logger:  a.log,
	})
	res := resolver.Resolve(ctx)
	a.view.CenterMap(res.Coordinate, res.Zoom)
	return res.Coordinate, nil
}

func openLayouts(ctx context.Context, cfg *config.Config, sink status.Sink, log zerolog.Logger) (*preferences.Service, func()) {
	var (
		repo    preferences.Repository
		closeFn = func() {}
	)

	switch cfg.Preferences.Store {
	case config.StoreSQLite:
		sqlite, err := preferences.OpenSQLite(ctx, cfg.Preferences.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite preference store unavailable, layout will not persist")
			break
		}
		repo = sqlite
		closeFn = func() { _ = sqlite.Close() }
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, layout will not persist")
			break
		}
		pg := preferences.NewPostgresRepository(pool, cfg.Preferences.Owner)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("preference schema unavailable, layout will not persist")
			pool.Close()
			break
		}
		repo = pg
		closeFn = pool.Close
	}
	if repo == nil {
		repo = preferences.NewInMemoryRepository()
	}

	return preferences.NewService(preferences.ServiceConfig{Repository: repo, Status: sink, Logger: log}), closeFn
}

func parseWidth(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("width %q is not a number", s)
	}
	return v, nil
}
