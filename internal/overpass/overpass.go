// Package overpass queries OpenStreetMap data through the Overpass API,
// spacing calls through a shared gate and rotating across public mirrors
// when an instance is overloaded.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/provider/resilience"
	"github.com/homestride/homestride/internal/telemetry"
)

// ProviderName identifies this provider in logs, metrics and the registry.
const ProviderName = "overpass"

// DefaultEndpoints are the primary instance followed by public mirrors.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

var (
	// ErrRateLimited is returned for a single 429/504 answer; it is retried internally.
	ErrRateLimited = errors.New("overpass rate limited")
	// ErrUnavailable is returned once every attempt across the mirrors failed.
	ErrUnavailable = errors.New("overpass unavailable")
)

// Element is one node or way from an Overpass "out center body" result.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *LatLon           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// LatLon is the center of a way as returned by "out center".
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the element location: the node position, or the center of a way.
func (e Element) Point() (geo.Point, bool) {
	if e.Lat != nil && e.Lon != nil {
		return geo.Point{Lat: *e.Lat, Lng: *e.Lon}, true
	}
	if e.Center != nil {
		return geo.Point{Lat: e.Center.Lat, Lng: e.Center.Lon}, true
	}
	return geo.Point{}, false
}

// Name returns the element's name tag.
func (e Element) Name() string {
	return e.Tags["name"]
}

type response struct {
	Elements []Element `json:"elements"`
}

// ClientConfig holds configuration for the Overpass client.
type ClientConfig struct {
	// Endpoints are tried in rotation, one per attempt. Default: DefaultEndpoints.
	Endpoints []string

	// Gate spaces calls to Overpass. Share one gate across every Overpass user.
	Gate *resilience.Gate

	// MaxAttempts bounds the total number of calls per query. Default: 5.
	MaxAttempts int

	// RetryInterval scales the wait after a 429/504/network failure:
	// attempt n waits RetryInterval*(n+2). Default: 3s.
	RetryInterval time.Duration

	HTTPClient resilience.HTTPDoer
	Timeout    time.Duration
	UserAgent  string
	Registry   *resilience.Registry
	Metrics    *telemetry.ProviderMetrics
	Logger     zerolog.Logger
}

// Client runs Overpass QL queries.
type Client struct {
	endpoints     []string
	gate          *resilience.Gate
	maxAttempts   int
	retryInterval time.Duration
	httpClient    resilience.HTTPDoer
	metrics       *telemetry.ProviderMetrics
	logger        zerolog.Logger
}

// NewClient creates a new Overpass client.
func NewClient(cfg ClientConfig) *Client {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = cfg.Timeout
		clientCfg.DisableRetries = true
		clientCfg.UserAgent = cfg.UserAgent
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		endpoints:     cfg.Endpoints,
		gate:          cfg.Gate,
		maxAttempts:   cfg.MaxAttempts,
		retryInterval: cfg.RetryInterval,
		httpClient:    httpClient,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// attemptBackOff waits interval*(attempt+2) before each retry.
type attemptBackOff struct {
	interval time.Duration
	attempt  int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	wait := b.interval * time.Duration(b.attempt+2)
	b.attempt++
	return wait
}

func (b *attemptBackOff) Reset() { b.attempt = 0 }

// Query runs an Overpass QL query and returns its elements.
func (c *Client) Query(ctx context.Context, ql string) ([]Element, error) {
	start := time.Now()
	attempt := 0
	var elements []Element

	operation := func() error {
		endpoint := c.endpoints[attempt%len(c.endpoints)]
		attempt++

		if err := c.gate.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		result, err := c.post(ctx, endpoint, ql)
		if err != nil {
			c.logger.Debug().Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("overpass attempt failed")
			return err
		}
		elements = result
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&attemptBackOff{interval: c.retryInterval}, uint64(c.maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(operation, policy)
	c.metrics.RecordRequest(ProviderName, "query", time.Since(start), err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var status *StatusError
		if errors.As(err, &status) {
			return nil, err
		}
		c.logger.Error().Err(err).Int("attempts", attempt).Msg("overpass exhausted all attempts")
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, attempt, err)
	}
	return elements, nil
}

// StatusError is a non-retryable HTTP answer from Overpass (for example a QL syntax error).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) post(ctx context.Context, endpoint, ql string) ([]Element, error) {
	form := url.Values{"data": {ql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // diagnostic only
		return nil, backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: string(snippet)})
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Overloaded instances sometimes answer 200 with an HTML error page.
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return body.Elements, nil
}
