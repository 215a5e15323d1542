package transit

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/overpass"
)

// Stop search defaults.
const (
	DefaultStopRadiusM = 2000
	DefaultStopLimit   = 5
	UnnamedStop        = "Unnamed stop"
)

// Stop types reported on Stop.Type.
const (
	StopTypeBus          = "bus_stop"
	StopTypeTrainStation = "train_station"
	StopTypeTram         = "tram_stop"
	StopTypeFerry        = "ferry_terminal"
)

var stopGroups = []overpass.TagGroup{
	{{Key: "public_transport", Value: "stop_position"}},
	{{Key: "public_transport", Value: "platform"}},
	{{Key: "railway", Value: "station"}},
	{{Key: "railway", Value: "halt"}},
	{{Key: "railway", Value: "tram_stop"}},
	{{Key: "highway", Value: "bus_stop"}},
	{{Key: "amenity", Value: "bus_station"}},
	{{Key: "amenity", Value: "ferry_terminal"}},
}

// Stop is a public transport stop near a point.
type Stop struct {
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Type      string  `json:"type"`
	DistanceM float64 `json:"distance_m"`
}

// Point returns the stop location.
func (s Stop) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// Querier runs Overpass QL. *overpass.Client implements it.
type Querier interface {
	Query(ctx context.Context, ql string) ([]overpass.Element, error)
}

// StopSearch finds transit stops through Overpass.
type StopSearch struct {
	overpass Querier
	logger   zerolog.Logger
}

// NewStopSearch creates a new StopSearch.
func NewStopSearch(q Querier, logger zerolog.Logger) *StopSearch {
	return &StopSearch{overpass: q, logger: logger}
}

// NearestStops returns up to limit stops within radiusM of p, nearest first.
// Stops closer than about a metre to one another are reported once.
func (s *StopSearch) NearestStops(ctx context.Context, p geo.Point, radiusM, limit int) ([]Stop, error) {
	if radiusM <= 0 {
		radiusM = DefaultStopRadiusM
	}
	if limit <= 0 {
		limit = DefaultStopLimit
	}

	elements, err := s.overpass.Query(ctx, overpass.NodeQuery(p, radiusM, stopGroups))
	if err != nil {
		return nil, fmt.Errorf("searching transit stops: %w", err)
	}

	type cell struct{ lat, lng int64 }
	seen := make(map[cell]struct{}, len(elements))
	stops := make([]Stop, 0, len(elements))

	for _, el := range elements {
		if el.Lat == nil || el.Lon == nil {
			continue
		}
		lat, lng := *el.Lat, *el.Lon
		key := cell{int64(math.Round(lat * 1e5)), int64(math.Round(lng * 1e5))}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		name := el.Name()
		if name == "" {
			name = UnnamedStop
		}
		loc := geo.Point{Lat: lat, Lng: lng}
		stops = append(stops, Stop{
			Name:      name,
			Lat:       lat,
			Lng:       lng,
			Type:      stopType(el.Tags),
			DistanceM: geo.Round(geo.DistanceMeters(p, loc), 0),
		})
	}

	sort.SliceStable(stops, func(i, j int) bool { return stops[i].DistanceM < stops[j].DistanceM })
	if len(stops) > limit {
		stops = stops[:limit]
	}

	s.logger.Debug().
		Str("point", p.String()).
		Int("radius_m", radiusM).
		Int("results", len(stops)).
		Msg("transit stop search complete")

	return stops, nil
}

func stopType(tags map[string]string) string {
	switch {
	case tags["railway"] == "station", tags["railway"] == "halt":
		return StopTypeTrainStation
	case tags["railway"] == "tram_stop":
		return StopTypeTram
	case tags["amenity"] == "ferry_terminal":
		return StopTypeFerry
	default:
		return StopTypeBus
	}
}
