// Package geocoding resolves addresses to coordinates and back.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/telemetry"
)

var (
	// ErrNotFound indicates the geocoder has no match for the query.
	ErrNotFound = errors.New("address not found")
	// ErrEmptyQuery indicates a blank address.
	ErrEmptyQuery = errors.New("address is required")
	// ErrProviderUnavailable indicates the geocoder could not be reached.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Result is a geocoded location.
type Result struct {
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}

// Point returns the result location.
func (r Result) Point() geo.Point {
	return geo.Point{Lat: r.Lat, Lng: r.Lng}
}

// Provider is a geocoding backend.
type Provider interface {
	Forward(ctx context.Context, address string) (*Result, error)
	Reverse(ctx context.Context, p geo.Point) (*Result, error)
	Name() string
}

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	Provider Provider
	Metrics  *telemetry.ProviderMetrics
	Logger   zerolog.Logger
}

// Service validates geocoding requests and forwards them to the provider.
type Service struct {
	provider Provider
	metrics  *telemetry.ProviderMetrics
	logger   zerolog.Logger
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Forward geocodes an address. It returns ErrNotFound when nothing matches.
func (s *Service) Forward(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	res, err := s.provider.Forward(ctx, address)
	s.metrics.RecordRequest(s.provider.Name(), "forward", time.Since(start), ignoreNotFound(err))
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", address, err)
	}
	return res, nil
}

// Reverse returns the display name of the place at p.
func (s *Service) Reverse(ctx context.Context, p geo.Point) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.provider.Reverse(ctx, p)
	s.metrics.RecordRequest(s.provider.Name(), "reverse", time.Since(start), ignoreNotFound(err))
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding %s: %w", p, err)
	}
	return res, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
