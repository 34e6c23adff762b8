// Package api provides the HTTP backend the AirWatch dashboard talks to.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/api/handler"
	"github.com/breatheroute/airwatch/internal/api/middleware"
	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// RouterConfig holds configuration for the router. Route groups whose
// dependency is nil are not mounted.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Aggregator handler.Aggregator
	Assistant  handler.Assistant
	Weather    handler.CityWeather
	IPLookup   handler.IPLookup
	Layouts    handler.LayoutStore

	Registry   *resilience.Registry
	Subsystems []handler.SubsystemCheck
}

// NewRouter creates a chi router with all backend routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airwatch-api"
	}

	// Global middleware, outermost first.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		models.NewNotFound(middleware.GetRequestID(r.Context()), "no route for "+r.URL.Path).
			WithInstance(r.URL.Path).
			Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		models.NewProblem(models.ProblemTypeNotFound, "Method not allowed", http.StatusMethodNotAllowed, middleware.GetRequestID(r.Context())).
			WithDetail(r.Method + " is not supported on " + r.URL.Path).
			WithInstance(r.URL.Path).
			Write(w)
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Subsystems...)
	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/status", opsHandler.SystemStatus)
	})

	standardRateLimit := middleware.RateLimitByClient(middleware.StandardRateLimit)

	r.Route("/api", func(r chi.Router) {
		if cfg.Aggregator != nil {
			aggregateHandler := handler.NewAggregateHandler(cfg.Aggregator)
			r.With(middleware.RateLimitByClient(middleware.AggregateRateLimit)).
				Get("/aggregate", aggregateHandler.GetAggregate)
		}

		if cfg.Assistant != nil {
			assistantHandler := handler.NewAssistantHandler(cfg.Assistant)
			r.Route("/gemini", func(r chi.Router) {
				r.Use(middleware.RequireJSON)
				r.Use(middleware.RateLimitByClient(middleware.AssistantRateLimit))
				r.Post("/suggest", assistantHandler.Suggest)
				r.Post("/chat", assistantHandler.Chat)
			})
		}

		if cfg.Weather != nil || cfg.IPLookup != nil {
			lookupHandler := handler.NewLookupHandler(cfg.Weather, cfg.IPLookup)
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				if cfg.Weather != nil {
					r.Get("/weather", lookupHandler.GetWeather)
				}
				if cfg.IPLookup != nil {
					r.Get("/revgeo", lookupHandler.GetRevGeo)
				}
			})
		}

		if cfg.Layouts != nil {
			preferencesHandler := handler.NewPreferencesHandler(cfg.Layouts)
			r.Route("/preferences", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Use(middleware.RequireJSON)
				r.Get("/layout", preferencesHandler.GetLayout)
				r.Put("/layout", preferencesHandler.PutLayout)
			})
		}
	})

	return r
}
