// Package osrm is the fallback walking route strategy. It takes the route
// distance from an OSRM server and derives the duration from a fixed walking
// speed, since public OSRM instances only serve the driving profile.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/provider/resilience"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultWalkingSpeedKmh converts distance into walking time.
	DefaultWalkingSpeedKmh = 5.0
)

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	BaseURL string

	// Profile is the OSRM profile path segment. Default: "driving".
	Profile string

	// WalkingSpeedKmh must be positive. Default: 5.0.
	WalkingSpeedKmh float64

	HTTPClient resilience.HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client estimates walking routes from OSRM. It implements routing.Strategy.
type Client struct {
	baseURL    string
	profile    string
	speedKmh   float64
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	if cfg.WalkingSpeedKmh <= 0 {
		cfg.WalkingSpeedKmh = DefaultWalkingSpeedKmh
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		profile:    cfg.Profile,
		speedKmh:   cfg.WalkingSpeedKmh,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// WalkingRoute returns the OSRM route distance with an estimated walking duration.
func (c *Client) WalkingRoute(ctx context.Context, origin, destination geo.Point) (*routing.WalkRoute, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline",
		c.baseURL, c.profile, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Str("origin", origin.String()).
		Str("destination", destination.String()).
		Msg("requesting route from OSRM")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	var body osrmResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	// OSRM answers NoRoute and similar outcomes with 400 and a JSON code.
	if resp.StatusCode != http.StatusOK && (decodeErr != nil || body.Code == "") {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", resp.StatusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}
	if decodeErr != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE",
			Message:  "malformed route response",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, decodeErr),
		}
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     body.Code,
			Message:  "no route: " + body.Message,
			Err:      routing.ErrNoRouteFound,
		}
	}

	first := body.Routes[0]
	var geometry []geo.Point
	if coords, err := polyline.Decode(first.Geometry); err == nil {
		geometry = make([]geo.Point, len(coords))
		for i, pt := range coords {
			geometry[i] = geo.Point{Lat: pt.Lat, Lng: pt.Lng}
		}
	} else {
		c.logger.Debug().Err(err).Msg("discarding undecodable OSRM geometry")
	}

	distanceKm := first.Distance / 1000
	return &routing.WalkRoute{
		DistanceKm:  geo.Round2(distanceKm),
		DurationMin: geo.Round1(distanceKm / c.speedKmh * 60),
		Geometry:    geometry,
		Source:      routing.SourceOSRMEstimated,
	}, nil
}
