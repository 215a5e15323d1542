package transit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/telemetry"
)

// ItineraryProvider returns a multi-modal itinerary between two points.
// Implementations return ErrNoItinerary when the upstream has no answer.
type ItineraryProvider interface {
	Itinerary(ctx context.Context, origin, destination geo.Point) (*Itinerary, error)
	Name() string
}

// WalkRouter computes a walking route. *routing.Service implements it.
type WalkRouter interface {
	WalkingRoute(ctx context.Context, origin, destination geo.Point) (*routing.WalkRoute, error)
}

// StopFinder finds transit stops near a point. *StopSearch implements it.
type StopFinder interface {
	NearestStops(ctx context.Context, p geo.Point, radiusM, limit int) ([]Stop, error)
}

// ServiceConfig holds configuration for the commute service.
type ServiceConfig struct {
	// Itineraries are tried in order; the first itinerary returned wins.
	Itineraries []ItineraryProvider

	// Router computes the direct walk and the heuristic walking legs.
	Router WalkRouter

	// Stops enables the nearest-stop heuristic when no itinerary is available.
	Stops StopFinder

	// StopRadiusM bounds the stop search around home and work (default: 2000).
	StopRadiusM int

	Metrics *telemetry.ProviderMetrics
	Logger  zerolog.Logger
}

// Service resolves the walking part of a home-to-work commute.
type Service struct {
	itineraries []ItineraryProvider
	router      WalkRouter
	stops       StopFinder
	stopRadiusM int
	metrics     *telemetry.ProviderMetrics
	logger      zerolog.Logger
}

// NewService creates a new commute service.
func NewService(cfg ServiceConfig) *Service {
	radius := cfg.StopRadiusM
	if radius <= 0 {
		radius = DefaultStopRadiusM
	}

	providers := make([]ItineraryProvider, 0, len(cfg.Itineraries))
	for _, p := range cfg.Itineraries {
		if p != nil {
			providers = append(providers, p)
		}
	}

	return &Service{
		itineraries: providers,
		router:      cfg.Router,
		stops:       cfg.Stops,
		stopRadiusM: radius,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Commute resolves the commute between home and work.
//
// PreferWalk returns the direct walking route. PreferTransit tries each
// itinerary provider, then the nearest-stop heuristic, and finally the direct
// walk, letting SelectMode decide between transit and walking. ErrNoCommute
// is returned when nothing at all could be computed.
func (s *Service) Commute(ctx context.Context, home, work geo.Point, pref Preference) (*CommuteResult, error) {
	if err := home.Validate(); err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	if err := work.Validate(); err != nil {
		return nil, fmt.Errorf("work: %w", err)
	}
	if pref == "" {
		pref = PreferTransit
	}
	if !pref.Valid() {
		return nil, fmt.Errorf("unknown commute preference %q", pref)
	}

	direct, err := s.walk(ctx, home, work)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("direct walking route unavailable")
	}

	if pref == PreferWalk {
		if direct == nil {
			return nil, ErrNoCommute
		}
		return directWalkResult(direct, direct.Source), nil
	}

	for _, p := range s.itineraries {
		it, err := s.itinerary(ctx, p, home, work)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("provider", p.Name()).Msg("itinerary provider failed, trying next")
			continue
		}
		source := it.Source
		if source == "" {
			source = p.Name()
		}
		return SelectMode(Decompose(it), direct, source), nil
	}

	if s.stops != nil {
		return s.heuristic(ctx, home, work, direct)
	}

	if direct == nil {
		return nil, ErrNoCommute
	}
	return directWalkResult(direct, direct.Source), nil
}

func (s *Service) itinerary(ctx context.Context, p ItineraryProvider, home, work geo.Point) (*Itinerary, error) {
	start := time.Now()
	it, err := p.Itinerary(ctx, home, work)
	s.metrics.RecordRequest(p.Name(), "itinerary", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNoItinerary
	}
	return it, nil
}

func (s *Service) walk(ctx context.Context, origin, destination geo.Point) (*routing.WalkRoute, error) {
	if s.router == nil {
		return nil, routing.ErrProviderUnavailable
	}
	return s.router.WalkingRoute(ctx, origin, destination)
}

// heuristic approximates a transit commute from the stops nearest to home and
// work: walking to one and from the other is compared with walking directly.
func (s *Service) heuristic(ctx context.Context, home, work geo.Point, direct *routing.WalkRoute) (*CommuteResult, error) {
	if direct == nil {
		return nil, ErrNoCommute
	}
	fallback := directWalkResult(direct, SourceOverpassHeuristic)

	homeStop, err := s.nearestStop(ctx, home)
	if err != nil {
		return s.degrade(ctx, fallback, err)
	}
	workStop, err := s.nearestStop(ctx, work)
	if err != nil {
		return s.degrade(ctx, fallback, err)
	}
	if homeStop == nil || workStop == nil {
		return fallback, nil
	}

	leg1, err := s.walk(ctx, home, homeStop.Point())
	if err != nil {
		return s.degrade(ctx, fallback, err)
	}
	leg2, err := s.walk(ctx, workStop.Point(), work)
	if err != nil {
		return s.degrade(ctx, fallback, err)
	}

	walkMin := leg1.DurationMin + leg2.DurationMin
	walkKm := leg1.DistanceKm + leg2.DistanceKm
	if direct.DurationMin <= walkMin {
		return fallback, nil
	}

	return &CommuteResult{
		Mode: ModeTransit,
		HomeToTransit: &WalkLeg{
			StopName:    homeStop.Name,
			StopType:    homeStop.Type,
			DistanceKm:  leg1.DistanceKm,
			DurationMin: leg1.DurationMin,
			Geometry:    leg1.Geometry,
		},
		TransitToWork: &WalkLeg{
			StopName:    workStop.Name,
			StopType:    workStop.Type,
			DistanceKm:  leg2.DistanceKm,
			DurationMin: leg2.DurationMin,
			Geometry:    leg2.Geometry,
		},
		TransferWalks: []WalkLeg{},
		TotalWalkMin:  geo.Round1(walkMin),
		TotalWalkKm:   geo.Round2(walkKm),
		DirectWalkMin: ptr(direct.DurationMin),
		DirectWalkKm:  ptr(direct.DistanceKm),
		Source:        SourceOverpassHeuristic,
	}, nil
}

func (s *Service) nearestStop(ctx context.Context, p geo.Point) (*Stop, error) {
	stops, err := s.stops.NearestStops(ctx, p, s.stopRadiusM, DefaultStopLimit)
	if err != nil {
		return nil, err
	}
	if len(stops) == 0 {
		return nil, nil
	}
	return &stops[0], nil
}

func (s *Service) degrade(ctx context.Context, fallback *CommuteResult, err error) (*CommuteResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, routing.ErrNoRouteFound) {
		s.logger.Warn().Err(err).Msg("transit stop heuristic degraded to direct walk")
	}
	return fallback, nil
}
