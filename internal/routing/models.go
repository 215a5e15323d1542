// Package routing computes pedestrian walking routes between two points by
// trying an ordered chain of routing strategies.
package routing

import (
	"context"
	"errors"

	"github.com/homestride/homestride/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the provider is down, misconfigured or its breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no walking route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the provider quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Route sources reported on WalkRoute.Source.
const (
	SourceOpenRouteService = "openrouteservice"
	SourceOSRMEstimated    = "osrm_estimated"
)

// WalkRoute is a computed pedestrian route. Geometry runs origin to destination.
type WalkRoute struct {
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	Geometry    []geo.Point `json:"geometry"`
	Source      string      `json:"source"`
}

// Strategy computes a walking route from a single upstream.
// Implementations return ErrNoRouteFound (possibly wrapped) when the upstream
// answers but has no route, and ErrProviderUnavailable for transport failures.
type Strategy interface {
	WalkingRoute(ctx context.Context, origin, destination geo.Point) (*WalkRoute, error)
	Name() string
}

// Error provides detailed error information from a routing provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
