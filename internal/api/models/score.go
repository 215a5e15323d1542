package models

import (
	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/score"
)

// AmenityVisit is one amenity the user walks to. When Nearest is given it is
// used as the destination instead of searching.
type AmenityVisit struct {
	AmenityType   string         `json:"amenity_type"`
	VisitsPerWeek *int           `json:"visits_per_week,omitempty"`
	Nearest       *amenity.Place `json:"nearest,omitempty"`
}

// ScoreRequest is the body of POST /v1/score:compute.
type ScoreRequest struct {
	Home            *Point         `json:"home"`
	Work            *Point         `json:"work,omitempty"`
	Amenities       []AmenityVisit `json:"amenities,omitempty"`
	WorkDaysPerWeek *int           `json:"work_days_per_week,omitempty"`
	CommuteMode     string         `json:"commute_mode,omitempty"`
}

// RecomputeRequest is the body of POST /v1/score:recompute. The previous
// score is sent back by the client as it was returned.
type RecomputeRequest struct {
	Previous      *score.Result `json:"previous_score"`
	RowIndex      *int          `json:"row_index"`
	AmenityType   string        `json:"amenity_type"`
	VisitsPerWeek *int          `json:"visits_per_week"`
}
