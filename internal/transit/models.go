// Package transit turns a multi-modal itinerary into the walking segments of
// a commute and decides whether taking transit beats walking the whole way.
package transit

import (
	"errors"

	"github.com/homestride/homestride/internal/geo"
)

// Transit errors.
var (
	// ErrProviderUnavailable indicates an itinerary provider failed to answer.
	ErrProviderUnavailable = errors.New("transit provider unavailable")
	// ErrNoItinerary indicates the provider answered without any itinerary.
	ErrNoItinerary = errors.New("no transit itinerary")
	// ErrNoCommute indicates neither transit nor a walking route could be found.
	ErrNoCommute = errors.New("no commute could be computed")
)

// Result sources.
const (
	SourceGoogleRoutes      = "google_routes_api"
	SourceOverpassHeuristic = "overpass_heuristic"
)

// StepMode is the travel mode of one itinerary step.
type StepMode string

const (
	StepWalk    StepMode = "WALK"
	StepTransit StepMode = "TRANSIT"
)

// Mode is the chosen way of commuting.
type Mode string

const (
	ModeTransit    Mode = "transit"
	ModeDirectWalk Mode = "direct_walk"
)

// Preference is the commute mode a caller asks for.
type Preference string

const (
	// PreferTransit compares transit against walking and keeps the faster one.
	PreferTransit Preference = "transit"
	// PreferWalk always walks the whole way.
	PreferWalk Preference = "walk"
)

// Valid reports whether p is a known preference.
func (p Preference) Valid() bool {
	return p == PreferTransit || p == PreferWalk
}

// TransitInfo describes the vehicle leg of a TRANSIT step.
type TransitInfo struct {
	DepartureStop string `json:"departure_stop"`
	ArrivalStop   string `json:"arrival_stop"`
	LineName      string `json:"line_name"`
	LineShortName string `json:"line_short_name"`
	VehicleType   string `json:"vehicle_type"`
	Agency        string `json:"agency"`
	Headsign      string `json:"headsign"`
	NumStops      int    `json:"num_stops"`
}

// Step is one step of an itinerary, in chronological order.
type Step struct {
	Mode        StepMode     `json:"mode"`
	DistanceM   float64      `json:"distance_m"`
	DistanceKm  float64      `json:"distance_km"`
	DurationS   float64      `json:"duration_s"`
	DurationMin float64      `json:"duration_min"`
	Start       *geo.Point   `json:"start"`
	End         *geo.Point   `json:"end"`
	Geometry    []geo.Point  `json:"geometry,omitempty"`
	Transit     *TransitInfo `json:"transit_info,omitempty"`
}

// NewStep builds a step with its rounded kilometre and minute figures filled in.
func NewStep(mode StepMode, distanceM, durationS float64) Step {
	return Step{
		Mode:        mode,
		DistanceM:   distanceM,
		DistanceKm:  geo.Round2(distanceM / 1000),
		DurationS:   durationS,
		DurationMin: geo.Round1(durationS / 60),
	}
}

// Itinerary is a provider's transit answer: ordered steps plus the trip totals
// including ride and wait time.
type Itinerary struct {
	Steps     []Step
	DurationS float64
	DistanceM float64
	Source    string
}

// WalkLeg is a merged run of consecutive WALK steps.
type WalkLeg struct {
	StopName    string      `json:"stop_name"`
	StopType    string      `json:"stop_type"`
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	Geometry    []geo.Point `json:"geometry"`
}

// CommuteResult is the walking picture of a home-to-work trip.
// In ModeDirectWalk the walk legs are nil, TransferWalks is empty and the
// totals are those of the direct walk. In ModeTransit TotalWalkMin is the
// sum of every WALK step of the itinerary.
type CommuteResult struct {
	Mode             Mode      `json:"mode"`
	HomeToTransit    *WalkLeg  `json:"home_to_transit"`
	TransitToWork    *WalkLeg  `json:"transit_to_work"`
	TransferWalks    []WalkLeg `json:"transfer_walks"`
	TransitLegs      []Step    `json:"transit_legs,omitempty"`
	WalkLegs         []Step    `json:"walk_legs,omitempty"`
	TotalWalkMin     float64   `json:"total_walk_min"`
	TotalWalkKm      float64   `json:"total_walk_km"`
	TotalDurationMin *float64  `json:"total_duration_min,omitempty"`
	TotalDistanceKm  *float64  `json:"total_distance_km,omitempty"`
	DirectWalkMin    *float64  `json:"direct_walk_min,omitempty"`
	DirectWalkKm     *float64  `json:"direct_walk_km,omitempty"`
	Source           string    `json:"source"`
}

func ptr(v float64) *float64 { return &v }
