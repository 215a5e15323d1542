package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/api"
	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/geocoding"
	"github.com/homestride/homestride/internal/provider/resilience"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/score"
	"github.com/homestride/homestride/internal/transit"
)

var (
	home = geo.Point{Lat: 52.3676, Lng: 4.9041}
	work = geo.Point{Lat: 52.3731, Lng: 4.8922}
)

type fakeGeocoder struct {
	err error
}

func (f *fakeGeocoder) Forward(_ context.Context, address string) (*geocoding.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &geocoding.Result{Address: address, Lat: home.Lat, Lng: home.Lng, DisplayName: "Dam, Amsterdam"}, nil
}

func (f *fakeGeocoder) Reverse(_ context.Context, p geo.Point) (*geocoding.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &geocoding.Result{Lat: p.Lat, Lng: p.Lng, DisplayName: "Dam, Amsterdam"}, nil
}

type fakeRouter struct {
	route *routing.WalkRoute
	err   error
	calls int
}

func (f *fakeRouter) WalkingRoute(context.Context, geo.Point, geo.Point) (*routing.WalkRoute, error) {
	f.calls++
	return f.route, f.err
}

type fakeCommuter struct {
	result *transit.CommuteResult
	err    error
	pref   transit.Preference
}

func (f *fakeCommuter) Commute(_ context.Context, _, _ geo.Point, pref transit.Preference) (*transit.CommuteResult, error) {
	f.pref = pref
	return f.result, f.err
}

type fakeSearcher struct {
	places   []amenity.Place
	err      error
	radius   int
	limit    int
	category string
}

func (f *fakeSearcher) Search(_ context.Context, _ geo.Point, category string, radiusM, limit int) ([]amenity.Place, error) {
	f.category, f.radius, f.limit = category, radiusM, limit
	return f.places, f.err
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, _ geo.Point, reqs []amenity.Request) []amenity.Resolution {
	out := make([]amenity.Resolution, len(reqs))
	for i, req := range reqs {
		if req.AmenityType == "library" {
			out[i] = amenity.Resolution{Request: req, Status: amenity.StatusEmpty, Reason: "nothing nearby"}
			continue
		}
		out[i] = amenity.Resolution{
			Request: req,
			Status:  amenity.StatusResolved,
			Place:   &amenity.Place{Name: "Albert Heijn", Lat: 52.368, Lng: 4.905},
			Route:   &routing.WalkRoute{DistanceKm: 0.5, DurationMin: 6, Source: routing.SourceOpenRouteService},
		}
	}
	return out
}

type fakeHealth struct {
	providers []resilience.ProviderHealth
}

func (f fakeHealth) Snapshot() []resilience.ProviderHealth { return f.providers }

type testDeps struct {
	geocoder *fakeGeocoder
	router   *fakeRouter
	commuter *fakeCommuter
	searcher *fakeSearcher
	health   fakeHealth
}

func newDeps() *testDeps {
	return &testDeps{
		geocoder: &fakeGeocoder{},
		router:   &fakeRouter{route: &routing.WalkRoute{DistanceKm: 1.2, DurationMin: 14.4, Source: routing.SourceOpenRouteService}},
		commuter: &fakeCommuter{result: &transit.CommuteResult{
			Mode:          transit.ModeDirectWalk,
			TotalWalkMin:  12,
			TotalWalkKm:   1,
			TransferWalks: []transit.WalkLeg{},
			Source:        routing.SourceOpenRouteService,
		}},
		searcher: &fakeSearcher{places: []amenity.Place{{Name: "Vondelpark", Lat: 52.358, Lng: 4.868, DistanceM: 420}}},
	}
}

func (d *testDeps) handler() http.Handler {
	scorer := score.NewService(score.ServiceConfig{
		Commutes:  d.commuter,
		Amenities: fakeResolver{},
		Logger:    zerolog.Nop(),
	})
	return api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "2024-01-01T00:00:00Z",
		Logger:         zerolog.New(io.Discard),
		Geocoder:       d.geocoder,
		WalkRouter:     d.router,
		Commuter:       d.commuter,
		Amenities:      d.searcher,
		Scorer:         scorer,
		Health:         d.health,
		AmenityRadiusM: 2500,
		AmenityLimit:   5,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestRouter_HealthCheck(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_SystemStatus(t *testing.T) {
	now := time.Now()
	deps := newDeps()
	deps.health = fakeHealth{providers: []resilience.ProviderHealth{
		{Name: "nominatim", CircuitState: gobreaker.StateClosed, LastSuccessAt: &now},
		{Name: "overpass", CircuitState: gobreaker.StateOpen, LastFailureAt: &now, LastError: "504 gateway timeout"},
	}}

	w := do(t, deps.handler(), http.MethodGet, "/v1/ops/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Providers, 2)
	assert.Equal(t, models.HealthStatusOK, status.Providers[0].Status)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)
	assert.Equal(t, models.HealthStatusFail, status.Providers[1].Status)
	assert.Equal(t, "open", status.Providers[1].CircuitState)
	require.NotNil(t, status.Providers[1].Message)
	assert.Equal(t, "504 gateway timeout", *status.Providers[1].Message)
}

func TestRouter_SystemStatus_NoProviders(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodGet, "/v1/ops/status", nil)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.Providers)
}

func TestRouter_GeocodeForward(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/geocode/forward", models.ForwardGeocodeRequest{Address: "Dam 1"})
		require.Equal(t, http.StatusOK, w.Code)

		var got models.GeocodeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Dam 1", got.Address)
		assert.Equal(t, home.Lat, got.Lat)
		assert.Equal(t, "Dam, Amsterdam", got.DisplayName)
	})

	t.Run("blank address", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/geocode/forward", models.ForwardGeocodeRequest{Address: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		p := decodeProblem(t, w)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "address", p.Errors[0].Field)
	})

	t.Run("not found", func(t *testing.T) {
		deps := newDeps()
		deps.geocoder.err = geocoding.ErrNotFound
		w := do(t, deps.handler(), http.MethodPost, "/v1/geocode/forward", models.ForwardGeocodeRequest{Address: "Nowhere 0"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("provider down", func(t *testing.T) {
		deps := newDeps()
		deps.geocoder.err = geocoding.ErrProviderUnavailable
		w := do(t, deps.handler(), http.MethodPost, "/v1/geocode/forward", models.ForwardGeocodeRequest{Address: "Dam 1"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, models.ProblemTypeUpstream, decodeProblem(t, w).Type)
	})
}

func TestRouter_GeocodeReverse(t *testing.T) {
	lat, lng := 52.37, 4.89
	w := do(t, newDeps().handler(), http.MethodPost, "/v1/geocode/reverse", models.ReverseGeocodeRequest{Lat: &lat, Lng: &lng})
	assert.Equal(t, http.StatusOK, w.Code)

	bad := 95.0
	w = do(t, newDeps().handler(), http.MethodPost, "/v1/geocode/reverse", models.ReverseGeocodeRequest{Lat: &bad, Lng: &lng})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newDeps().handler(), http.MethodPost, "/v1/geocode/reverse", map[string]float64{"lat": lat})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_WalkRoute(t *testing.T) {
	origin, dest := models.NewPoint(home.Lat, home.Lng), models.NewPoint(work.Lat, work.Lng)

	t.Run("ok", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/routes/walk", models.WalkRouteRequest{Origin: &origin, Destination: &dest})
		require.Equal(t, http.StatusOK, w.Code)

		var got models.WalkRouteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.NotNil(t, got.Route)
		assert.Equal(t, 14.4, got.Route.DurationMin)
		assert.Equal(t, routing.SourceOpenRouteService, got.Route.Source)
	})

	t.Run("missing destination", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/routes/walk", models.WalkRouteRequest{Origin: &origin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "destination", decodeProblem(t, w).Errors[0].Field)
	})

	t.Run("no route", func(t *testing.T) {
		deps := newDeps()
		deps.router.route, deps.router.err = nil, routing.ErrNoRouteFound
		w := do(t, deps.handler(), http.MethodPost, "/v1/routes/walk", models.WalkRouteRequest{Origin: &origin, Destination: &dest})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("providers down", func(t *testing.T) {
		deps := newDeps()
		deps.router.route, deps.router.err = nil, fmt.Errorf("%w: osrm timeout", routing.ErrProviderUnavailable)
		w := do(t, deps.handler(), http.MethodPost, "/v1/routes/walk", models.WalkRouteRequest{Origin: &origin, Destination: &dest})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, models.ProblemTypeUpstream, decodeProblem(t, w).Type)
	})
}

func TestRouter_Commute(t *testing.T) {
	h, w := models.NewPoint(home.Lat, home.Lng), models.NewPoint(work.Lat, work.Lng)

	t.Run("defaults to transit", func(t *testing.T) {
		deps := newDeps()
		rec := do(t, deps.handler(), http.MethodPost, "/v1/routes/commute", models.CommuteRequest{Home: &h, Work: &w})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, transit.PreferTransit, deps.commuter.pref)

		var got models.CommuteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, transit.ModeDirectWalk, got.Commute.Mode)
	})

	t.Run("walk", func(t *testing.T) {
		deps := newDeps()
		rec := do(t, deps.handler(), http.MethodPost, "/v1/routes/commute", models.CommuteRequest{Home: &h, Work: &w, Mode: "walk"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, transit.PreferWalk, deps.commuter.pref)
	})

	t.Run("invalid mode", func(t *testing.T) {
		rec := do(t, newDeps().handler(), http.MethodPost, "/v1/routes/commute", models.CommuteRequest{Home: &h, Work: &w, Mode: "bike"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "mode", decodeProblem(t, rec).Errors[0].Field)
	})

	t.Run("nothing found", func(t *testing.T) {
		deps := newDeps()
		deps.commuter.result, deps.commuter.err = nil, transit.ErrNoCommute
		rec := do(t, deps.handler(), http.MethodPost, "/v1/routes/commute", models.CommuteRequest{Home: &h, Work: &w})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_AmenitySearch(t *testing.T) {
	lat, lng := home.Lat, home.Lng

	t.Run("applies defaults", func(t *testing.T) {
		deps := newDeps()
		w := do(t, deps.handler(), http.MethodPost, "/v1/amenities/search", models.AmenitySearchRequest{Lat: &lat, Lng: &lng, AmenityType: "Park"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2500, deps.searcher.radius)
		assert.Equal(t, 5, deps.searcher.limit)
		assert.Equal(t, "park", deps.searcher.category)

		var got models.AmenitySearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got.Results, 1)
		assert.Equal(t, "Vondelpark", got.Results[0].Name)
	})

	t.Run("empty result is a list", func(t *testing.T) {
		deps := newDeps()
		deps.searcher.places = nil
		w := do(t, deps.handler(), http.MethodPost, "/v1/amenities/search", models.AmenitySearchRequest{Lat: &lat, Lng: &lng, AmenityType: "gym"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"results":[]`)
	})

	t.Run("radius out of range", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/amenities/search", models.AmenitySearchRequest{Lat: &lat, Lng: &lng, AmenityType: "gym", RadiusM: 50})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "radius_m", decodeProblem(t, w).Errors[0].Field)
	})

	t.Run("upstream failure", func(t *testing.T) {
		deps := newDeps()
		deps.searcher.err = errors.New("overpass unavailable")
		w := do(t, deps.handler(), http.MethodPost, "/v1/amenities/search", models.AmenitySearchRequest{Lat: &lat, Lng: &lng, AmenityType: "gym"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRouter_AmenityTypes(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodGet, "/v1/amenities/types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.AmenityTypesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got.Types, "supermarket")
	assert.IsNonDecreasing(t, got.Types)
}

func intPtr(v int) *int { return &v }

func TestRouter_ScoreCompute(t *testing.T) {
	h, wk := models.NewPoint(home.Lat, home.Lng), models.NewPoint(work.Lat, work.Lng)

	req := models.ScoreRequest{
		Home: &h,
		Work: &wk,
		Amenities: []models.AmenityVisit{
			{AmenityType: "supermarket", VisitsPerWeek: intPtr(2)},
			{AmenityType: "library"},
		},
	}

	w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:compute", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got score.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got.Breakdown, 2)
	assert.True(t, got.Breakdown[0].IsCommute())
	assert.Equal(t, score.LabelCommuteFullWalk, got.Breakdown[0].Label)
	// commute: 12 min x 2 x 5 days = 120; supermarket: 6 min x 2 x 2 = 24
	assert.Equal(t, 120.0, got.Breakdown[0].WeeklyMinutes)
	assert.Equal(t, 24.0, got.Breakdown[1].WeeklyMinutes)
	assert.Equal(t, 144.0, got.TotalWeeklyWalkMin)
	assert.Equal(t, 576, got.TotalWeeklyCalories)
	assert.Len(t, got.Warnings, 1)
}

func TestRouter_ScoreCompute_Validation(t *testing.T) {
	h := models.NewPoint(home.Lat, home.Lng)

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing home", models.ScoreRequest{}, "home"},
		{"bad work days", models.ScoreRequest{Home: &h, WorkDaysPerWeek: intPtr(8)}, "work_days_per_week"},
		{"bad commute mode", models.ScoreRequest{Home: &h, CommuteMode: "drive"}, "commute_mode"},
		{"bad visits", models.ScoreRequest{Home: &h, Amenities: []models.AmenityVisit{{AmenityType: "gym", VisitsPerWeek: intPtr(15)}}}, "amenities[0].visits_per_week"},
		{"blank amenity", models.ScoreRequest{Home: &h, Amenities: []models.AmenityVisit{{AmenityType: ""}}}, "amenities[0].amenity_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:compute", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			p := decodeProblem(t, w)
			require.NotEmpty(t, p.Errors)
			assert.Equal(t, tt.field, p.Errors[0].Field)
		})
	}
}

func TestRouter_MissingCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		fields []string
	}{
		{"score empty home", "/v1/score:compute", `{"home":{},"amenities":[{"amenity_type":"park"}]}`, []string{"home.lat", "home.lng"}},
		{"score home without lat", "/v1/score:compute", `{"home":{"lng":-71.4}}`, []string{"home.lat"}},
		{"score work without lng", "/v1/score:compute", `{"home":{"lat":41.82,"lng":-71.4},"work":{"lat":41.83}}`, []string{"work.lng"}},
		{"walk empty points", "/v1/routes/walk", `{"origin":{},"destination":{}}`, []string{"origin.lat", "origin.lng", "destination.lat", "destination.lng"}},
		{"commute empty work", "/v1/routes/commute", `{"home":{"lat":41.82,"lng":-71.4},"work":{}}`, []string{"work.lat", "work.lng"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newDeps()
			w := do(t, deps.handler(), http.MethodPost, tt.path, json.RawMessage(tt.body))
			require.Equal(t, http.StatusBadRequest, w.Code)

			p := decodeProblem(t, w)
			var fields []string
			for _, e := range p.Errors {
				fields = append(fields, e.Field)
				assert.Equal(t, models.CodeRequired, e.Code, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
			assert.Zero(t, deps.router.calls)
		})
	}
}

func TestRouter_ScoreCompute_RejectsUnknownFields(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:compute", map[string]interface{}{
		"home":  map[string]float64{"lat": 52, "lng": 4},
		"extra": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ScoreRecompute(t *testing.T) {
	agg := score.NewAggregator(score.Config{})
	prev := agg.Aggregate([]score.BreakdownItem{
		score.AmenityRow("gym", "Basic-Fit", &routing.WalkRoute{DistanceKm: 0.8, DurationMin: 10}, 3),
	})

	t.Run("updates totals", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:recompute", models.RecomputeRequest{
			Previous:      &prev,
			RowIndex:      intPtr(0),
			AmenityType:   "gym",
			VisitsPerWeek: intPtr(5),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got score.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 100.0, got.TotalWeeklyWalkMin)
		assert.Equal(t, 5, got.Breakdown[0].RoundTripsPerWeek)
	})

	t.Run("unknown row", func(t *testing.T) {
		w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:recompute", models.RecomputeRequest{
			Previous:      &prev,
			RowIndex:      intPtr(3),
			VisitsPerWeek: intPtr(5),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "row_index", decodeProblem(t, w).Errors[0].Field)
	})

	t.Run("visits out of range are rejected, not clamped", func(t *testing.T) {
		for _, visits := range []int{0, 15} {
			w := do(t, newDeps().handler(), http.MethodPost, "/v1/score:recompute", models.RecomputeRequest{
				Previous:      &prev,
				RowIndex:      intPtr(0),
				VisitsPerWeek: intPtr(visits),
			})
			require.Equal(t, http.StatusBadRequest, w.Code, "visits %d", visits)
			p := decodeProblem(t, w)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, "visits_per_week", p.Errors[0].Field)
			assert.Equal(t, models.CodeOutOfRange, p.Errors[0].Code)
		}
	})
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/score:compute", bytes.NewReader([]byte("home=1")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	newDeps().handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_NotFound(t *testing.T) {
	w := do(t, newDeps().handler(), http.MethodGet, "/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
