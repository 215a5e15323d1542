package amenity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/overpass"
	"github.com/homestride/homestride/internal/routing"
)

var home = geo.Point{Lat: 52.3676, Lng: 4.9041}

// fakeQuerier records queries and returns canned elements.
type fakeQuerier struct {
	elements []overpass.Element
	err      error
	queries  []string
}

func (f *fakeQuerier) Query(_ context.Context, ql string) ([]overpass.Element, error) {
	f.queries = append(f.queries, ql)
	return f.elements, f.err
}

func node(id int64, lat, lon float64, name string) overpass.Element {
	el := overpass.Element{Type: "node", ID: id, Lat: &lat, Lon: &lon}
	if name != "" {
		el.Tags = map[string]string{"name": name}
	}
	return el
}

func way(id int64, lat, lon float64, name string) overpass.Element {
	return overpass.Element{
		Type:   "way",
		ID:     id,
		Center: &overpass.LatLon{Lat: lat, Lon: lon},
		Tags:   map[string]string{"name": name},
	}
}

func TestTagGroups(t *testing.T) {
	groups := amenity.TagGroups("  Grocery ")
	require.Len(t, groups, 2)
	assert.Equal(t, overpass.Tag{Key: "shop", Value: "supermarket"}, groups[0][0])
	assert.Equal(t, overpass.Tag{Key: "shop", Value: "convenience"}, groups[1][0])

	coffee := amenity.TagGroups("coffee")
	require.Len(t, coffee, 1)
	assert.Len(t, coffee[0], 2)

	fallback := amenity.TagGroups("Cinema")
	require.Len(t, fallback, 1)
	assert.Equal(t, overpass.TagGroup{{Key: "amenity", Value: "cinema"}}, fallback[0])
	assert.False(t, amenity.Known("cinema"))
	assert.True(t, amenity.Known("Park"))
}

func TestCategories_SortedCatalog(t *testing.T) {
	cats := amenity.Categories()
	assert.Len(t, cats, 26)
	assert.True(t, strings.Compare(cats[0], cats[len(cats)-1]) < 0)
	assert.Contains(t, cats, "coffee shop")
	assert.Contains(t, cats, "swimming_pool")
}

func TestSearcher_Search_SortsFiltersAndLimits(t *testing.T) {
	q := &fakeQuerier{elements: []overpass.Element{
		node(1, 52.3800, 4.9041, "Far Coffee"),
		node(2, 52.3680, 4.9041, "University Dining Hall"),
		way(3, 52.3700, 4.9041, "Corner Coffee"),
		node(4, 52.3690, 4.9041, ""),
		{Type: "relation", ID: 5},
	}}
	searcher := amenity.NewSearcher(amenity.SearcherConfig{Overpass: q, Logger: zerolog.Nop()})

	places, err := searcher.Search(context.Background(), home, "coffee", 0, 0)
	require.NoError(t, err)
	require.Len(t, places, 3)

	assert.Equal(t, amenity.UnnamedPlace, places[0].Name)
	assert.Equal(t, "Corner Coffee", places[1].Name)
	assert.Equal(t, "Far Coffee", places[2].Name)
	for i := 1; i < len(places); i++ {
		assert.LessOrEqual(t, places[i-1].DistanceM, places[i].DistanceM)
	}
	assert.Equal(t, "coffee", places[0].AmenityType)
	assert.Equal(t, places[0].DistanceM, geo.Round(places[0].DistanceM, 0))

	require.Len(t, q.queries, 1)
	assert.Contains(t, q.queries[0], `["amenity"="cafe"]["cuisine"="coffee_shop"]`)
	assert.Contains(t, q.queries[0], "(around:2500,")
}

func TestSearcher_Search_CafeKeepsFoodHall(t *testing.T) {
	q := &fakeQuerier{elements: []overpass.Element{
		node(1, 52.3680, 4.9041, "Central Food Hall"),
		node(2, 52.3681, 4.9041, "Staff Canteen"),
	}}
	searcher := amenity.NewSearcher(amenity.SearcherConfig{Overpass: q, Logger: zerolog.Nop()})

	places, err := searcher.Search(context.Background(), home, "cafe", 1000, 5)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Central Food Hall", places[0].Name)
}

func TestSearcher_Search_Limit(t *testing.T) {
	var elements []overpass.Element
	for i := 0; i < 8; i++ {
		elements = append(elements, node(int64(i), 52.3676+float64(i)*0.001, 4.9041, "Park"))
	}
	searcher := amenity.NewSearcher(amenity.SearcherConfig{Overpass: &fakeQuerier{elements: elements}, Logger: zerolog.Nop()})

	places, err := searcher.Search(context.Background(), home, "park", 2500, 2)
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestSearcher_Search_Errors(t *testing.T) {
	searcher := amenity.NewSearcher(amenity.SearcherConfig{
		Overpass: &fakeQuerier{err: overpass.ErrUnavailable},
		Logger:   zerolog.Nop(),
	})

	_, err := searcher.Search(context.Background(), home, "park", 0, 0)
	assert.ErrorIs(t, err, overpass.ErrUnavailable)

	_, err = searcher.Search(context.Background(), home, "  ", 0, 0)
	assert.ErrorIs(t, err, amenity.ErrEmptyCategory)

	_, err = searcher.Search(context.Background(), geo.Point{Lat: 100}, "park", 0, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

// fakeFinder returns canned places per category.
type fakeFinder struct {
	places map[string][]amenity.Place
	errs   map[string]error
	calls  []string
}

func (f *fakeFinder) Search(_ context.Context, _ geo.Point, category string, _, _ int) ([]amenity.Place, error) {
	f.calls = append(f.calls, category)
	return f.places[category], f.errs[category]
}

// fakeRouter returns a fixed route unless the destination is blocked.
type fakeRouter struct {
	blocked map[geo.Point]error
}

func (f *fakeRouter) WalkingRoute(_ context.Context, _, dest geo.Point) (*routing.WalkRoute, error) {
	if err, ok := f.blocked[dest]; ok {
		return nil, err
	}
	return &routing.WalkRoute{DistanceKm: 0.8, DurationMin: 10, Source: routing.SourceOSRMEstimated}, nil
}

func TestResolver_Resolve(t *testing.T) {
	gym := amenity.Place{Name: "Basic-Fit", Lat: 52.37, Lng: 4.90}
	pool := amenity.Place{Name: "Zuiderbad", Lat: 52.35, Lng: 4.89}
	finder := &fakeFinder{
		places: map[string][]amenity.Place{
			"gym":           {gym},
			"swimming_pool": {pool},
		},
		errs: map[string]error{"library": overpass.ErrUnavailable},
	}
	router := &fakeRouter{blocked: map[geo.Point]error{pool.Point(): routing.ErrNoRouteFound}}

	resolver := amenity.NewResolver(amenity.ResolverConfig{Finder: finder, Router: router, Logger: zerolog.Nop()})

	supplied := &amenity.Place{Name: "My Park", Lat: 52.36, Lng: 4.88}
	results := resolver.Resolve(context.Background(), home, []amenity.Request{
		{AmenityType: "gym", VisitsPerWeek: 3},
		{AmenityType: "library", VisitsPerWeek: 1},
		{AmenityType: "beach", VisitsPerWeek: 1},
		{AmenityType: "swimming_pool", VisitsPerWeek: 2},
		{AmenityType: "park", VisitsPerWeek: 3, Nearest: supplied},
	})
	require.Len(t, results, 5)

	assert.Equal(t, amenity.StatusResolved, results[0].Status)
	assert.Equal(t, "Basic-Fit", results[0].Place.Name)
	assert.Equal(t, 10.0, results[0].Route.DurationMin)

	assert.Equal(t, amenity.StatusFailed, results[1].Status)
	assert.ErrorIs(t, results[1].Err, overpass.ErrUnavailable)

	assert.Equal(t, amenity.StatusEmpty, results[2].Status)
	assert.Nil(t, results[2].Place)

	assert.Equal(t, amenity.StatusEmpty, results[3].Status)
	assert.Contains(t, results[3].Reason, "Zuiderbad")

	assert.Equal(t, amenity.StatusResolved, results[4].Status)
	assert.Same(t, supplied, results[4].Place)

	// Requests are handled in order and a supplied location skips the search.
	assert.Equal(t, []string{"gym", "library", "beach", "swimming_pool"}, finder.calls)
}

func TestResolver_RouterFailure(t *testing.T) {
	dest := amenity.Place{Name: "Bakery", Lat: 52.36, Lng: 4.90}
	resolver := amenity.NewResolver(amenity.ResolverConfig{
		Finder: &fakeFinder{places: map[string][]amenity.Place{"bakery": {dest}}},
		Router: &fakeRouter{blocked: map[geo.Point]error{dest.Point(): errors.New("boom")}},
		Logger: zerolog.Nop(),
	})

	results := resolver.Resolve(context.Background(), home, []amenity.Request{{AmenityType: "bakery", VisitsPerWeek: 1}})
	require.Len(t, results, 1)
	assert.Equal(t, amenity.StatusFailed, results[0].Status)
	assert.EqualError(t, results[0].Err, "boom")
}

func TestClampVisits(t *testing.T) {
	assert.Equal(t, 1, amenity.ClampVisits(0))
	assert.Equal(t, 1, amenity.ClampVisits(-3))
	assert.Equal(t, 7, amenity.ClampVisits(7))
	assert.Equal(t, 14, amenity.ClampVisits(40))
}
