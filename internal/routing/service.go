package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/telemetry"
)

const operationWalkingRoute = "walking_route"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Strategies are tried in order until one returns a route.
	Strategies []Strategy

	// Metrics records each strategy call (optional).
	Metrics *telemetry.ProviderMetrics

	Logger zerolog.Logger
}

// Service resolves walking routes through an ordered strategy chain.
type Service struct {
	strategies []Strategy
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

// NewService creates a new routing service. Nil strategies are skipped.
func NewService(cfg ServiceConfig) *Service {
	strategies := make([]Strategy, 0, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		if s != nil {
			strategies = append(strategies, s)
		}
	}

	return &Service{
		strategies: strategies,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// WalkingRoute returns the first route produced by the strategy chain.
// A strategy that has no route or is unavailable hands over to the next one.
// When the chain is exhausted the result is ErrNoRouteFound if any strategy
// answered "no route", and otherwise the last failure wrapped with
// ErrProviderUnavailable.
func (s *Service) WalkingRoute(ctx context.Context, origin, destination geo.Point) (*WalkRoute, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := destination.Validate(); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	var lastErr error
	answered := false
	for _, strategy := range s.strategies {
		start := time.Now()
		route, err := strategy.WalkingRoute(ctx, origin, destination)
		s.metrics.RecordRequest(strategy.Name(), operationWalkingRoute, time.Since(start), err)

		if err == nil && route != nil {
			return route, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		event := s.logger.Warn()
		if err == nil || errors.Is(err, ErrNoRouteFound) {
			answered = true
			event = s.logger.Debug()
		} else {
			lastErr = err
		}
		event.Err(err).
			Str("strategy", strategy.Name()).
			Str("origin", origin.String()).
			Str("destination", destination.String()).
			Msg("walking route strategy produced no route")
	}

	if answered || lastErr == nil {
		return nil, ErrNoRouteFound
	}
	if errors.Is(lastErr, ErrProviderUnavailable) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, lastErr)
}

// StrategyNames lists the configured strategies in chain order.
func (s *Service) StrategyNames() []string {
	names := make([]string, len(s.strategies))
	for i, st := range s.strategies {
		names[i] = st.Name()
	}
	return names
}
