package amenity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/routing"
)

// Visits per week bounds for an amenity.
const (
	MinVisitsPerWeek     = 1
	MaxVisitsPerWeek     = 14
	DefaultVisitsPerWeek = 3
)

// ClampVisits bounds visits to [MinVisitsPerWeek, MaxVisitsPerWeek].
func ClampVisits(visits int) int {
	return max(MinVisitsPerWeek, min(MaxVisitsPerWeek, visits))
}

// Request is one amenity the user visits. When Nearest is set it is used as
// the destination and no search is made.
type Request struct {
	AmenityType   string `json:"amenity_type"`
	VisitsPerWeek int    `json:"visits_per_week"`
	Nearest       *Place `json:"nearest,omitempty"`
}

// Status is the outcome of resolving one amenity request.
type Status string

const (
	// StatusResolved means a destination and a walking route were found.
	StatusResolved Status = "resolved"
	// StatusEmpty means nothing was found nearby, or no walking route exists.
	StatusEmpty Status = "empty"
	// StatusFailed means an upstream call failed.
	StatusFailed Status = "failed"
)

// Resolution is the per-request outcome. Place and Route are set only when
// Status is StatusResolved.
type Resolution struct {
	Request Request
	Status  Status
	Place   *Place
	Route   *routing.WalkRoute
	Reason  string
	Err     error
}

// Finder searches amenities. *Searcher implements it.
type Finder interface {
	Search(ctx context.Context, origin geo.Point, category string, radiusM, limit int) ([]Place, error)
}

// WalkRouter computes walking routes. *routing.Service implements it.
type WalkRouter interface {
	WalkingRoute(ctx context.Context, origin, destination geo.Point) (*routing.WalkRoute, error)
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	Finder  Finder
	Router  WalkRouter
	RadiusM int
	Limit   int
	Logger  zerolog.Logger
}

// Resolver turns amenity requests into destinations with walking routes.
type Resolver struct {
	finder  Finder
	router  WalkRouter
	radiusM int
	limit   int
	logger  zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = DefaultRadiusM
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Resolver{
		finder:  cfg.Finder,
		router:  cfg.Router,
		radiusM: cfg.RadiusM,
		limit:   cfg.Limit,
		logger:  cfg.Logger,
	}
}

// Resolve handles the requests one after another, in order, so that the
// shared Overpass gate sees a steady stream of calls. One request failing
// never stops the rest.
func (r *Resolver) Resolve(ctx context.Context, home geo.Point, reqs []Request) []Resolution {
	out := make([]Resolution, 0, len(reqs))
	for _, req := range reqs {
		res := r.resolveOne(ctx, home, req)
		if res.Status != StatusResolved {
			r.logger.Warn().
				Err(res.Err).
				Str("amenity_type", req.AmenityType).
				Str("status", string(res.Status)).
				Str("reason", res.Reason).
				Msg("amenity contribution skipped")
		}
		out = append(out, res)
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, home geo.Point, req Request) Resolution {
	res := Resolution{Request: req}

	place := req.Nearest
	if place != nil {
		if err := place.Point().Validate(); err != nil {
			res.Status, res.Reason, res.Err = StatusFailed, "invalid supplied location", err
			return res
		}
	} else {
		places, err := r.finder.Search(ctx, home, req.AmenityType, r.radiusM, r.limit)
		if err != nil {
			res.Status, res.Reason, res.Err = StatusFailed, "amenity search failed", err
			return res
		}
		if len(places) == 0 {
			res.Status = StatusEmpty
			res.Reason = fmt.Sprintf("no %s within %d m", req.AmenityType, r.radiusM)
			return res
		}
		place = &places[0]
	}

	route, err := r.router.WalkingRoute(ctx, home, place.Point())
	switch {
	case errors.Is(err, routing.ErrNoRouteFound):
		res.Status, res.Reason = StatusEmpty, "no walking route to "+place.Name
		return res
	case err != nil:
		res.Status, res.Reason, res.Err = StatusFailed, "walking route failed", err
		return res
	case route == nil:
		res.Status, res.Reason = StatusEmpty, "no walking route to "+place.Name
		return res
	}

	res.Status = StatusResolved
	res.Place = place
	res.Route = route
	return res
}
