// Package api provides the HTTP API for HomeStride.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/api/handler"
	"github.com/homestride/homestride/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	RequireTLS     bool
	AllowedOrigins []string

	Geocoder       handler.Geocoder
	WalkRouter     handler.WalkRouter
	Commuter       handler.Commuter
	Amenities      handler.AmenitySearcher
	Scorer         handler.Scorer
	Health         handler.HealthReporter
	AmenityRadiusM int
	AmenityLimit   int
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "homestride-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))       // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))     // Panic recovery
	r.Use(chimiddleware.RealIP)                // Real IP extraction
	r.Use(middleware.CORS(cfg.AllowedOrigins)) // Browser front end
	r.Use(middleware.SecurityHeaders)          // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Health)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Geocoder)
	routeHandler := handler.NewRouteHandler(cfg.WalkRouter, cfg.Commuter)
	amenityHandler := handler.NewAmenityHandler(cfg.Amenities, cfg.AmenityRadiusM, cfg.AmenityLimit)
	scoreHandler := handler.NewScoreHandler(cfg.Scorer)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 20 req/min
	providerRateLimit := middleware.RateLimitByIP(middleware.ProviderRateLimit)   // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 300 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Nominatim allows one request per second, keep callers well below it.
		r.Route("/geocode", func(r chi.Router) {
			r.Use(providerRateLimit)
			r.Post("/forward", geocodeHandler.Forward)
			r.Post("/reverse", geocodeHandler.Reverse)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Use(providerRateLimit)
			r.Post("/walk", routeHandler.WalkRoute)
			r.Post("/commute", routeHandler.Commute)
		})

		r.Route("/amenities", func(r chi.Router) {
			r.With(standardRateLimit).Get("/types", amenityHandler.Types)
			r.With(providerRateLimit).Post("/search", amenityHandler.Search)
		})

		// Score computation fans out to every provider.
		r.With(expensiveRateLimit).Post("/score:compute", scoreHandler.Compute)
		r.With(standardRateLimit).Post("/score:recompute", scoreHandler.Recompute)
	})

	return r
}
