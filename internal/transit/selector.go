package transit

import "github.com/homestride/homestride/internal/routing"

// SelectMode decides between transit and walking the whole way.
//
// Transit is kept only when the direct walk takes strictly longer than the
// whole transit trip, ride and waits included; ties go to walking. Without
// any transit step the result is a direct walk, using the direct route when
// there is one and the itinerary's own walking otherwise. Without a direct
// route the comparison is skipped. It returns nil only when both inputs are nil.
func SelectMode(d *Decomposition, direct *routing.WalkRoute, source string) *CommuteResult {
	if d == nil {
		if direct == nil {
			return nil
		}
		return directWalkResult(direct, source)
	}

	if !d.HasTransit() {
		if direct != nil {
			return directWalkResult(direct, source)
		}
		return &CommuteResult{
			Mode:             ModeDirectWalk,
			TransferWalks:    []WalkLeg{},
			WalkLegs:         d.WalkSteps,
			TotalWalkMin:     d.TotalWalkMin,
			TotalWalkKm:      d.TotalWalkKm,
			TotalDurationMin: ptr(d.TotalDurationMin),
			TotalDistanceKm:  ptr(d.TotalDistanceKm),
			Source:           source,
		}
	}

	if direct != nil && direct.DurationMin <= d.TotalDurationMin {
		return directWalkResult(direct, source)
	}

	res := &CommuteResult{
		Mode:             ModeTransit,
		HomeToTransit:    d.HomeToTransit,
		TransitToWork:    d.TransitToWork,
		TransferWalks:    d.TransferWalks,
		TransitLegs:      d.TransitSteps,
		WalkLegs:         d.WalkSteps,
		TotalWalkMin:     d.TotalWalkMin,
		TotalWalkKm:      d.TotalWalkKm,
		TotalDurationMin: ptr(d.TotalDurationMin),
		TotalDistanceKm:  ptr(d.TotalDistanceKm),
		Source:           source,
	}
	if direct != nil {
		res.DirectWalkMin = ptr(direct.DurationMin)
		res.DirectWalkKm = ptr(direct.DistanceKm)
	}
	return res
}

func directWalkResult(direct *routing.WalkRoute, source string) *CommuteResult {
	return &CommuteResult{
		Mode:             ModeDirectWalk,
		TransferWalks:    []WalkLeg{},
		TotalWalkMin:     direct.DurationMin,
		TotalWalkKm:      direct.DistanceKm,
		TotalDurationMin: ptr(direct.DurationMin),
		TotalDistanceKm:  ptr(direct.DistanceKm),
		DirectWalkMin:    ptr(direct.DurationMin),
		DirectWalkKm:     ptr(direct.DistanceKm),
		Source:           source,
	}
}
