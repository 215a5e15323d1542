// Package config loads homestride runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the API server.
type Config struct {
	Port         string
	Environment  string
	OTelEnabled  bool
	OTLPEndpoint string
	HTTPTimeout  time.Duration

	RequireTLS         bool
	CORSAllowedOrigins []string

	NominatimBaseURL     string
	NominatimMinInterval time.Duration
	UserAgent            string

	OSRMBaseURL string
	ORSAPIKey   string

	OverpassBaseURL     string
	OverpassMirrors     []string
	OverpassMinInterval time.Duration

	GoogleMapsAPIKey string

	WalkingSpeedKmh          float64
	CaloriesPerMinuteWalking float64
	WHOWeeklyMinutes         float64

	AmenitySearchRadiusM int
	AmenityResultLimit   int
	TransitStopRadiusM   int
}

// Load reads an optional .env file at path (ignored when absent) and then the
// process environment. Unparseable numeric values fall back to defaults.
func Load(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:         getEnvOrDefault("APP_PORT", "8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:  getEnvOrDefault("OTEL_ENABLED", "false") == "true",
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		HTTPTimeout:  getDuration("HTTP_TIMEOUT", 15*time.Second),

		RequireTLS:         getEnvOrDefault("REQUIRE_TLS", "false") == "true",
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		NominatimBaseURL:     getEnvOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		NominatimMinInterval: getDuration("NOMINATIM_MIN_INTERVAL", time.Second),
		UserAgent:            getEnvOrDefault("HTTP_USER_AGENT", "homestride/1.0"),

		OSRMBaseURL: getEnvOrDefault("OSRM_BASE_URL", "https://router.project-osrm.org"),
		ORSAPIKey:   os.Getenv("ORS_API_KEY"),

		OverpassBaseURL:     getEnvOrDefault("OVERPASS_BASE_URL", "https://overpass-api.de/api/interpreter"),
		OverpassMirrors:     splitList(getEnvOrDefault("OVERPASS_MIRRORS", "https://overpass.kumi.systems/api/interpreter,https://maps.mail.ru/osm/tools/overpass/api/interpreter")),
		OverpassMinInterval: getDuration("OVERPASS_MIN_INTERVAL", 3*time.Second),

		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),

		WalkingSpeedKmh:          getFloat("WALKING_SPEED_KMH", 5.0),
		CaloriesPerMinuteWalking: getFloat("CALORIES_PER_MINUTE_WALKING", 4.0),
		WHOWeeklyMinutes:         getFloat("WHO_WEEKLY_MINUTES", 150),

		AmenitySearchRadiusM: getInt("AMENITY_SEARCH_RADIUS_M", 2500),
		AmenityResultLimit:   getInt("AMENITY_RESULT_LIMIT", 5),
		TransitStopRadiusM:   getInt("TRANSIT_STOP_RADIUS_M", 2000),
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the scoring model cannot work with.
func (c Config) Validate() error {
	if c.WalkingSpeedKmh <= 0 {
		return fmt.Errorf("WALKING_SPEED_KMH must be positive, got %v", c.WalkingSpeedKmh)
	}
	if c.WHOWeeklyMinutes <= 0 {
		return fmt.Errorf("WHO_WEEKLY_MINUTES must be positive, got %v", c.WHOWeeklyMinutes)
	}
	if c.CaloriesPerMinuteWalking < 0 {
		return fmt.Errorf("CALORIES_PER_MINUTE_WALKING must not be negative, got %v", c.CaloriesPerMinuteWalking)
	}
	if c.AmenitySearchRadiusM <= 0 || c.AmenityResultLimit <= 0 || c.TransitStopRadiusM <= 0 {
		return errors.New("search radii and result limit must be positive")
	}
	return nil
}

// OverpassEndpoints returns the primary Overpass URL followed by its mirrors.
func (c Config) OverpassEndpoints() []string {
	endpoints := []string{c.OverpassBaseURL}
	for _, m := range c.OverpassMirrors {
		if m != c.OverpassBaseURL {
			endpoints = append(endpoints, m)
		}
	}
	return endpoints
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
