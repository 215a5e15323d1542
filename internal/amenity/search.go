package amenity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/overpass"
)

// Search defaults.
const (
	DefaultRadiusM = 2500
	DefaultLimit   = 5
	UnnamedPlace   = "Unnamed"
)

// ErrEmptyCategory is returned when no amenity category is given.
var ErrEmptyCategory = errors.New("amenity category is required")

// Place is a candidate amenity location.
type Place struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	AmenityType string  `json:"amenity_type,omitempty"`
	DistanceM   float64 `json:"distance_m"`
}

// Point returns the place location.
func (p Place) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}

// Querier runs Overpass QL. *overpass.Client implements it.
type Querier interface {
	Query(ctx context.Context, ql string) ([]overpass.Element, error)
}

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	Overpass Querier
	Logger   zerolog.Logger
}

// Searcher finds amenities of a category around a point.
type Searcher struct {
	overpass Querier
	logger   zerolog.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(cfg SearcherConfig) *Searcher {
	return &Searcher{
		overpass: cfg.Overpass,
		logger:   cfg.Logger,
	}
}

// Search returns up to limit places of the category within radiusM of origin,
// nearest first. Non-positive radius or limit use the package defaults.
func (s *Searcher) Search(ctx context.Context, origin geo.Point, category string, radiusM, limit int) ([]Place, error) {
	if Normalize(category) == "" {
		return nil, ErrEmptyCategory
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := overpass.NearbyQuery(origin, radiusM, TagGroups(category))
	elements, err := s.overpass.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", category, err)
	}

	places := make([]Place, 0, len(elements))
	for _, el := range elements {
		p, ok := el.Point()
		if !ok {
			continue
		}
		name := el.Name()
		if name == "" {
			name = UnnamedPlace
		}
		if excluded(category, name) {
			continue
		}
		places = append(places, Place{
			Name:        name,
			Lat:         p.Lat,
			Lng:         p.Lng,
			AmenityType: category,
			DistanceM:   geo.Round(geo.DistanceMeters(origin, p), 0),
		})
	}

	sort.SliceStable(places, func(i, j int) bool { return places[i].DistanceM < places[j].DistanceM })
	if len(places) > limit {
		places = places[:limit]
	}

	s.logger.Debug().
		Str("category", category).
		Int("radius_m", radiusM).
		Int("elements", len(elements)).
		Int("results", len(places)).
		Msg("amenity search complete")

	return places, nil
}
