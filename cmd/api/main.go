// Package main provides the entrypoint for the HomeStride API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/api"
	"github.com/homestride/homestride/internal/api/middleware"
	"github.com/homestride/homestride/internal/config"
	"github.com/homestride/homestride/internal/geocoding"
	"github.com/homestride/homestride/internal/geocoding/nominatim"
	"github.com/homestride/homestride/internal/overpass"
	"github.com/homestride/homestride/internal/provider/resilience"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/routing/openrouteservice"
	"github.com/homestride/homestride/internal/routing/osrm"
	"github.com/homestride/homestride/internal/score"
	"github.com/homestride/homestride/internal/telemetry"
	"github.com/homestride/homestride/internal/transit"
	"github.com/homestride/homestride/internal/transit/googleroutes"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "homestride-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting HomeStride API")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()

	// Walking routes: ORS first when a key is configured, OSRM as the fallback.
	var strategies []routing.Strategy
	if cfg.ORSAPIKey != "" {
		strategies = append(strategies, openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			Timeout:  cfg.HTTPTimeout,
			Registry: registry,
			Logger:   log,
		}))
	} else {
		log.Warn().Msg("ORS_API_KEY not set - walking durations are estimated from OSRM distances")
	}
	strategies = append(strategies, osrm.NewClient(osrm.ClientConfig{
		BaseURL:         cfg.OSRMBaseURL,
		WalkingSpeedKmh: cfg.WalkingSpeedKmh,
		Timeout:         cfg.HTTPTimeout,
		Registry:        registry,
		Logger:          log,
	}))
	routingService := routing.NewService(routing.ServiceConfig{
		Strategies: strategies,
		Metrics:    providerMetrics,
		Logger:     log,
	})
	log.Info().Strs("strategies", routingService.StrategyNames()).Msg("routing service initialized")

	// One gate for every Overpass caller: amenity search and the stop heuristic.
	overpassClient := overpass.NewClient(overpass.ClientConfig{
		Endpoints:     cfg.OverpassEndpoints(),
		Gate:          resilience.NewGate(cfg.OverpassMinInterval),
		RetryInterval: cfg.OverpassMinInterval,
		Timeout:       cfg.HTTPTimeout,
		UserAgent:     cfg.UserAgent,
		Registry:      registry,
		Metrics:       providerMetrics,
		Logger:        log,
	})

	searcher := amenity.NewSearcher(amenity.SearcherConfig{
		Overpass: overpassClient,
		Logger:   log,
	})
	resolver := amenity.NewResolver(amenity.ResolverConfig{
		Finder:  searcher,
		Router:  routingService,
		RadiusM: cfg.AmenitySearchRadiusM,
		Limit:   cfg.AmenityResultLimit,
		Logger:  log,
	})

	var itineraries []transit.ItineraryProvider
	if cfg.GoogleMapsAPIKey != "" {
		itineraries = append(itineraries, googleroutes.NewClient(googleroutes.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Timeout:  cfg.HTTPTimeout,
			Registry: registry,
			Logger:   log,
		}))
	} else {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set - commutes use the nearest-stop heuristic")
	}
	commuteService := transit.NewService(transit.ServiceConfig{
		Itineraries: itineraries,
		Router:      routingService,
		Stops:       transit.NewStopSearch(overpassClient, log),
		StopRadiusM: cfg.TransitStopRadiusM,
		Metrics:     providerMetrics,
		Logger:      log,
	})

	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Provider: nominatim.NewClient(nominatim.ClientConfig{
			BaseURL:   cfg.NominatimBaseURL,
			UserAgent: cfg.UserAgent,
			Gate:      resilience.NewGate(cfg.NominatimMinInterval),
			Timeout:   cfg.HTTPTimeout,
			Registry:  registry,
			Logger:    log,
		}),
		Metrics: providerMetrics,
		Logger:  log,
	})

	scoreService := score.NewService(score.ServiceConfig{
		Commutes:  commuteService,
		Amenities: resolver,
		Aggregator: score.NewAggregator(score.Config{
			CaloriesPerMinute: cfg.CaloriesPerMinuteWalking,
			WHOWeeklyMinutes:  cfg.WHOWeeklyMinutes,
		}),
		Logger: log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		RequireTLS:     cfg.RequireTLS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Geocoder:       geocoder,
		WalkRouter:     routingService,
		Commuter:       commuteService,
		Amenities:      searcher,
		Scorer:         scoreService,
		Health:         registry,
		AmenityRadiusM: cfg.AmenitySearchRadiusM,
		AmenityLimit:   cfg.AmenityResultLimit,
	})

	// Score computation waits on the Overpass gate once per amenity, so the
	// write timeout is well above the read timeout.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
