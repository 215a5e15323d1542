// Package score turns a commute and a set of amenity trips into weekly
// walking minutes, calories, a share of the WHO activity guideline and a
// letter grade.
package score

import (
	"errors"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/transit"
)

var (
	// ErrMissingHome is returned when no valid home location is given.
	ErrMissingHome = errors.New("home location is required")
	// ErrRowNotFound is returned by Recompute for an unknown breakdown row.
	ErrRowNotFound = errors.New("breakdown row not found")
)

// Defaults.
const (
	DefaultWorkDaysPerWeek   = 5
	MaxWorkDaysPerWeek       = 7
	DefaultCaloriesPerMinute = 4.0
	DefaultWHOWeeklyMinutes  = 150.0
)

// Commute row labels.
const (
	LabelCommute         = "Work commute"
	LabelCommuteFullWalk = "Work commute (full walk)"
)

// CommuteModeWalk marks a commute row computed as a requested full walk.
const CommuteModeWalk = "walk"

// BreakdownItem is one row of the score. CommuteMode is set only on the
// commute row; AmenityType only on amenity rows.
type BreakdownItem struct {
	Label             string                 `json:"label"`
	AmenityType       string                 `json:"amenity_type,omitempty"`
	DistanceKm        float64                `json:"distance_km"`
	OneWayMin         float64                `json:"one_way_min"`
	RoundTripsPerWeek int                    `json:"round_trips_per_week"`
	WeeklyMinutes     float64                `json:"weekly_minutes"`
	CommuteMode       string                 `json:"commute_mode,omitempty"`
	Source            string                 `json:"source,omitempty"`
	CommuteDetail     *transit.CommuteResult `json:"commute_detail,omitempty"`
}

// IsCommute reports whether the row is the work commute.
func (b BreakdownItem) IsCommute() bool {
	return b.CommuteMode != ""
}

// Result is a complete walking score.
type Result struct {
	TotalWeeklyWalkMin  float64         `json:"total_weekly_walk_min"`
	TotalWeeklyCalories int             `json:"total_weekly_calories"`
	WHOGuidelinePct     float64         `json:"who_guideline_pct"`
	Grade               string          `json:"grade"`
	Breakdown           []BreakdownItem `json:"breakdown"`
	Warnings            []string        `json:"warnings,omitempty"`
}

// Request is the input of Service.ComputeScore.
type Request struct {
	Home      geo.Point
	Work      *geo.Point
	Amenities []amenity.Request

	// WorkDaysPerWeek defaults to DefaultWorkDaysPerWeek when nil. Zero is valid.
	WorkDaysPerWeek *int

	// CommuteMode defaults to transit.PreferTransit.
	CommuteMode transit.Preference
}
