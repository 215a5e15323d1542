// Package nominatim is a geocoding provider backed by the OpenStreetMap
// Nominatim API. Calls are spaced through a gate to honour the public
// instance's one request per second policy.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/geocoding"
	"github.com/homestride/homestride/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies the application to Nominatim.
	DefaultUserAgent = "homestride/1.0"
)

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	BaseURL string

	// UserAgent is sent on every request. Nominatim rejects anonymous clients.
	UserAgent string

	// Gate spaces consecutive calls (optional).
	Gate *resilience.Gate

	HTTPClient resilience.HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is a Nominatim client. It implements geocoding.Provider.
type Client struct {
	baseURL    string
	userAgent  string
	gate       *resilience.Gate
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.UserAgent = userAgent
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		gate:       cfg.Gate,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Forward returns the best match for address.
func (c *Client) Forward(ctx context.Context, address string) (*geocoding.Result, error) {
	q := url.Values{
		"q":      {address},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	var places []place
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, geocoding.ErrNotFound
	}

	hit := places[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude %q", geocoding.ErrProviderUnavailable, hit.Lat)
	}
	lng, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude %q", geocoding.ErrProviderUnavailable, hit.Lon)
	}

	name := hit.DisplayName
	if name == "" {
		name = address
	}
	return &geocoding.Result{Address: address, Lat: lat, Lng: lng, DisplayName: name}, nil
}

// Reverse returns the display name of the place at p.
func (c *Client) Reverse(ctx context.Context, p geo.Point) (*geocoding.Result, error) {
	q := url.Values{
		"lat":    {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(p.Lng, 'f', -1, 64)},
		"format": {"jsonv2"},
	}

	var hit place
	if err := c.get(ctx, "/reverse", q, &hit); err != nil {
		return nil, err
	}
	// Nominatim answers 200 with an error field when nothing is near.
	if hit.Error != "" {
		return nil, geocoding.ErrNotFound
	}

	return &geocoding.Result{
		Address:     hit.DisplayName,
		Lat:         p.Lat,
		Lng:         p.Lng,
		DisplayName: hit.DisplayName,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("path", path).Msg("querying nominatim")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", geocoding.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code: %d", geocoding.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", geocoding.ErrProviderUnavailable, err)
	}
	return nil
}
