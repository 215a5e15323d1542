package transit

import (
	"github.com/homestride/homestride/internal/geo"
)

// Labels used when an itinerary lacks stop details.
const (
	fallbackStopName = "Transit stop"
	fallbackStopType = "transit"
	walkOnlyStopName = "Destination"
	walkOnlyStopType = "walk"
	transferStopType = "transfer"
)

// Decomposition is an itinerary split into the walks around its transit steps.
type Decomposition struct {
	HomeToTransit *WalkLeg
	TransitToWork *WalkLeg
	TransferWalks []WalkLeg

	// WalkOnly holds every walk merged into one leg when there is no transit step.
	WalkOnly *WalkLeg

	WalkSteps    []Step
	TransitSteps []Step

	TotalWalkMin     float64
	TotalWalkKm      float64
	TotalDurationMin float64
	TotalDistanceKm  float64
}

// HasTransit reports whether the itinerary contains at least one TRANSIT step.
func (d *Decomposition) HasTransit() bool {
	return len(d.TransitSteps) > 0
}

// Decompose splits an itinerary into the walk to the first transit stop, the
// walk from the last one, and the transfer walks between consecutive transit
// steps. Step order is preserved throughout.
func Decompose(it *Itinerary) *Decomposition {
	d := &Decomposition{
		TransferWalks:    []WalkLeg{},
		TotalDurationMin: geo.Round1(it.DurationS / 60),
		TotalDistanceKm:  geo.Round2(it.DistanceM / 1000),
	}

	var transitIdx []int
	var walkM, walkS float64
	for i, s := range it.Steps {
		switch s.Mode {
		case StepWalk:
			d.WalkSteps = append(d.WalkSteps, s)
			walkM += s.DistanceM
			walkS += s.DurationS
		case StepTransit:
			d.TransitSteps = append(d.TransitSteps, s)
			transitIdx = append(transitIdx, i)
		}
	}
	d.TotalWalkMin = geo.Round1(walkS / 60)
	d.TotalWalkKm = geo.Round2(walkM / 1000)

	if len(transitIdx) == 0 {
		if len(d.WalkSteps) > 0 {
			leg := MergeWalkSteps(d.WalkSteps, walkOnlyStopName, walkOnlyStopType)
			d.WalkOnly = &leg
		}
		return d
	}

	first, last := transitIdx[0], transitIdx[len(transitIdx)-1]
	firstInfo, lastInfo := d.TransitSteps[0].Transit, d.TransitSteps[len(d.TransitSteps)-1].Transit

	if pre := walksIn(it.Steps[:first]); len(pre) > 0 {
		leg := MergeWalkSteps(pre, departureName(firstInfo), vehicleType(firstInfo))
		d.HomeToTransit = &leg
	}
	if post := walksIn(it.Steps[last+1:]); len(post) > 0 {
		leg := MergeWalkSteps(post, arrivalName(lastInfo), vehicleType(lastInfo))
		d.TransitToWork = &leg
	}

	for k := 0; k+1 < len(transitIdx); k++ {
		between := walksIn(it.Steps[transitIdx[k]+1 : transitIdx[k+1]])
		if len(between) == 0 {
			continue
		}
		from := arrivalName(d.TransitSteps[k].Transit)
		to := departureName(d.TransitSteps[k+1].Transit)
		d.TransferWalks = append(d.TransferWalks, MergeWalkSteps(between, from+" → "+to, transferStopType))
	}

	return d
}

// MergeWalkSteps sums the steps' distances and durations and concatenates
// their geometry, skipping a first vertex equal to the previous last vertex.
func MergeWalkSteps(steps []Step, stopName, stopType string) WalkLeg {
	var meters, seconds float64
	geometry := []geo.Point{}
	for _, s := range steps {
		meters += s.DistanceM
		seconds += s.DurationS

		pts := s.Geometry
		if len(geometry) > 0 && len(pts) > 0 && geometry[len(geometry)-1] == pts[0] {
			pts = pts[1:]
		}
		geometry = append(geometry, pts...)
	}

	return WalkLeg{
		StopName:    stopName,
		StopType:    stopType,
		DistanceKm:  geo.Round2(meters / 1000),
		DurationMin: geo.Round1(seconds / 60),
		Geometry:    geometry,
	}
}

func walksIn(steps []Step) []Step {
	var out []Step
	for _, s := range steps {
		if s.Mode == StepWalk {
			out = append(out, s)
		}
	}
	return out
}

func departureName(info *TransitInfo) string {
	if info == nil {
		return fallbackStopName
	}
	return info.DepartureStop
}

func arrivalName(info *TransitInfo) string {
	if info == nil {
		return fallbackStopName
	}
	return info.ArrivalStop
}

func vehicleType(info *TransitInfo) string {
	if info == nil || info.VehicleType == "" {
		return fallbackStopType
	}
	return info.VehicleType
}
