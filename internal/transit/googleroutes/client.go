// Package googleroutes is a transit itinerary provider backed by the Google
// Routes API computeRoutes method in TRANSIT mode.
package googleroutes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/provider/resilience"
	"github.com/homestride/homestride/internal/transit"
	"github.com/homestride/homestride/pkg/polyline"
)

const (
	// ProviderName identifies this transit provider.
	ProviderName = "google_routes"

	// DefaultBaseURL is the Routes API base URL.
	DefaultBaseURL = "https://routes.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	unknownStop    = "Unknown"
	defaultVehicle = "bus"
)

var fieldMask = strings.Join([]string{
	"routes.legs.steps.travelMode",
	"routes.legs.steps.staticDuration",
	"routes.legs.steps.distanceMeters",
	"routes.legs.steps.startLocation",
	"routes.legs.steps.endLocation",
	"routes.legs.steps.transitDetails",
	"routes.legs.steps.polyline",
	"routes.legs.duration",
	"routes.legs.distanceMeters",
	"routes.distanceMeters",
	"routes.duration",
}, ",")

// ClientConfig holds configuration for the Routes API client.
type ClientConfig struct {
	// APIKey is the Google Maps Platform key (required).
	APIKey string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a resilient client is created.
	HTTPClient resilience.HTTPDoer

	Timeout  time.Duration
	Registry *resilience.Registry
	Logger   zerolog.Logger
}

// Client fetches transit itineraries. It implements transit.ItineraryProvider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Routes API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Itinerary requests a public transport itinerary from origin to destination.
func (c *Client) Itinerary(ctx context.Context, origin, destination geo.Point) (*transit.Itinerary, error) {
	body, err := json.Marshal(computeRoutesRequest{
		Origin:                   pointWaypoint(origin),
		Destination:              pointWaypoint(destination),
		TravelMode:               "TRANSIT",
		ComputeAlternativeRoutes: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/directions/v2:computeRoutes"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	c.logger.Debug().
		Str("origin", origin.String()).
		Str("destination", destination.String()).
		Msg("requesting transit itinerary")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transit.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var out computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", transit.ErrProviderUnavailable, err)
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return nil, transit.ErrNoItinerary
	}

	return toItinerary(out.Routes[0])
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // diagnostic only

	var apiErr errorResponse
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	c.logger.Error().
		Int("status", resp.StatusCode).
		Str("message", msg).
		Msg("routes api error")

	return fmt.Errorf("%w: status %d: %s", transit.ErrProviderUnavailable, resp.StatusCode, msg)
}

func toItinerary(r route) (*transit.Itinerary, error) {
	l := r.Legs[0]

	steps := make([]transit.Step, 0, len(l.Steps))
	for i, s := range l.Steps {
		seconds, err := parseDuration(s.StaticDuration)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", transit.ErrProviderUnavailable, i, err)
		}

		step := transit.NewStep(transit.StepMode(s.TravelMode), float64(s.DistanceMeters), seconds)
		step.Start = s.StartLocation.point()
		step.End = s.EndLocation.point()

		if s.Polyline != nil && s.Polyline.EncodedPolyline != "" {
			coords, err := polyline.Decode(s.Polyline.EncodedPolyline)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d geometry: %w", transit.ErrProviderUnavailable, i, err)
			}
			step.Geometry = make([]geo.Point, len(coords))
			for j, c := range coords {
				step.Geometry[j] = geo.Point{Lat: c.Lat, Lng: c.Lng}
			}
		}

		if step.Mode == transit.StepTransit {
			step.Transit = parseTransitDetails(s.TransitDetails)
		}
		steps = append(steps, step)
	}

	durationStr := l.Duration
	if durationStr == "" {
		durationStr = r.Duration
	}
	duration, err := parseDuration(durationStr)
	if err != nil {
		return nil, fmt.Errorf("%w: leg duration: %w", transit.ErrProviderUnavailable, err)
	}

	var distance float64
	switch {
	case l.DistanceMeters != nil:
		distance = float64(*l.DistanceMeters)
	case r.DistanceMeters != nil:
		distance = float64(*r.DistanceMeters)
	}

	return &transit.Itinerary{
		Steps:     steps,
		DurationS: duration,
		DistanceM: distance,
		Source:    transit.SourceGoogleRoutes,
	}, nil
}

func parseTransitDetails(td *transitDetails) *transit.TransitInfo {
	info := &transit.TransitInfo{
		DepartureStop: unknownStop,
		ArrivalStop:   unknownStop,
		VehicleType:   defaultVehicle,
	}
	if td == nil {
		return info
	}

	if s := td.StopDetails.DepartureStop; s != nil && s.Name != "" {
		info.DepartureStop = s.Name
	}
	if s := td.StopDetails.ArrivalStop; s != nil && s.Name != "" {
		info.ArrivalStop = s.Name
	}
	if v := td.TransitLine.Vehicle.Type; v != "" {
		info.VehicleType = strings.ToLower(v)
	}
	if len(td.TransitLine.Agencies) > 0 {
		info.Agency = td.TransitLine.Agencies[0].Name
	}
	info.LineName = td.TransitLine.Name
	info.LineShortName = td.TransitLine.NameShort
	info.Headsign = td.Headsign
	info.NumStops = td.StopCount
	return info
}

// parseDuration parses protobuf JSON durations such as "754s" or "12.5s".
// An empty string is zero.
func parseDuration(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return v, nil
}

func pointWaypoint(p geo.Point) waypoint {
	return waypoint{Location: location{LatLng: &latLng{Latitude: p.Lat, Longitude: p.Lng}}}
}

func (l *location) point() *geo.Point {
	if l == nil || l.LatLng == nil {
		return nil
	}
	return &geo.Point{Lat: l.LatLng.Latitude, Lng: l.LatLng.Longitude}
}
