package score

import (
	"fmt"
	"slices"

	"github.com/homestride/homestride/internal/amenity"
)

// Recompute changes the visits per week of one amenity row and derives new
// totals without calling any provider. The row is addressed by index; when
// amenityType is non-empty it must match the row's amenity type. Visits are
// clamped to [1, 14]. Targeting the commute row returns prev unchanged.
// prev is never modified.
func (a *Aggregator) Recompute(prev Result, rowIndex int, amenityType string, visits int) (Result, error) {
	if rowIndex < 0 || rowIndex >= len(prev.Breakdown) {
		return Result{}, fmt.Errorf("%w: index %d of %d", ErrRowNotFound, rowIndex, len(prev.Breakdown))
	}

	row := prev.Breakdown[rowIndex]
	if row.IsCommute() {
		return prev, nil
	}
	if amenityType != "" && amenity.Normalize(amenityType) != amenity.Normalize(row.AmenityType) {
		return Result{}, fmt.Errorf("%w: row %d is %q, not %q", ErrRowNotFound, rowIndex, row.AmenityType, amenityType)
	}

	visits = amenity.ClampVisits(visits)
	row.RoundTripsPerWeek = visits
	row.WeeklyMinutes = WeeklyMinutes(row.OneWayMin, visits)

	rows := slices.Clone(prev.Breakdown)
	rows[rowIndex] = row

	res := a.Aggregate(rows)
	res.Warnings = prev.Warnings
	return res, nil
}
