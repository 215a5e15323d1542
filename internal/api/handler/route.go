package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/api/response"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/transit"
)

// WalkRouter computes walking routes. *routing.Service implements it.
type WalkRouter interface {
	WalkingRoute(ctx context.Context, origin, destination geo.Point) (*routing.WalkRoute, error)
}

// Commuter computes commutes. *transit.Service implements it.
type Commuter interface {
	Commute(ctx context.Context, home, work geo.Point, pref transit.Preference) (*transit.CommuteResult, error)
}

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	router   WalkRouter
	commuter Commuter
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(router WalkRouter, commuter Commuter) *RouteHandler {
	return &RouteHandler{router: router, commuter: commuter}
}

// WalkRoute handles POST /v1/routes/walk.
func (h *RouteHandler) WalkRoute(w http.ResponseWriter, r *http.Request) {
	var input models.WalkRouteRequest
	if !decode(w, r, &input) {
		return
	}
	errs := append(requirePoint("origin", input.Origin), requirePoint("destination", input.Destination)...)
	if len(errs) > 0 {
		response.BadRequest(w, r, "origin and destination are required", errs)
		return
	}

	route, err := h.router.WalkingRoute(r.Context(), input.Origin.Geo(), input.Destination.Geo())
	switch {
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no walking route found between the given points")
		return
	case err != nil:
		upstreamFailed(w, r, "routing providers unavailable", err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	response.JSON(w, r, http.StatusOK, models.WalkRouteResponse{Route: route})
}

// Commute handles POST /v1/routes/commute.
func (h *RouteHandler) Commute(w http.ResponseWriter, r *http.Request) {
	var input models.CommuteRequest
	if !decode(w, r, &input) {
		return
	}
	errs := append(requirePoint("home", input.Home), requirePoint("work", input.Work)...)
	pref, ok := commutePreference(input.Mode)
	if !ok {
		errs = append(errs, models.FieldError{Field: "mode", Message: "must be transit or walk", Code: models.CodeInvalid})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid commute request", errs)
		return
	}

	result, err := h.commuter.Commute(r.Context(), input.Home.Geo(), input.Work.Geo(), pref)
	switch {
	case errors.Is(err, transit.ErrNoCommute):
		response.NotFound(w, r, "no commute could be computed between home and work")
		return
	case err != nil:
		upstreamFailed(w, r, "commute providers unavailable", err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.CommuteResponse{Commute: result})
}

// commutePreference maps the request mode, defaulting to transit.
func commutePreference(mode string) (transit.Preference, bool) {
	if mode == "" {
		return transit.PreferTransit, true
	}
	pref := transit.Preference(mode)
	return pref, pref.Valid()
}
