package models

import (
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/transit"
)

// WalkRouteRequest is the body of POST /v1/routes/walk.
type WalkRouteRequest struct {
	Origin      *Point `json:"origin"`
	Destination *Point `json:"destination"`
}

// WalkRouteResponse wraps a walking route.
type WalkRouteResponse struct {
	Route *routing.WalkRoute `json:"route"`
}

// CommuteRequest is the body of POST /v1/routes/commute.
type CommuteRequest struct {
	Home *Point `json:"home"`
	Work *Point `json:"work"`
	// Mode is "transit" (default) or "walk".
	Mode string `json:"mode,omitempty"`
}

// CommuteResponse wraps a commute result.
type CommuteResponse struct {
	Commute *transit.CommuteResult `json:"commute"`
}
