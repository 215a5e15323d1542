package score

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/routing"
	"github.com/homestride/homestride/internal/transit"
)

// Config holds the scoring constants.
type Config struct {
	CaloriesPerMinute float64
	WHOWeeklyMinutes  float64
}

// Aggregator builds breakdown rows and the totals derived from them.
type Aggregator struct {
	caloriesPerMinute float64
	whoWeeklyMinutes  float64
}

// NewAggregator creates an aggregator. Non-positive constants use the defaults.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.CaloriesPerMinute <= 0 {
		cfg.CaloriesPerMinute = DefaultCaloriesPerMinute
	}
	if cfg.WHOWeeklyMinutes <= 0 {
		cfg.WHOWeeklyMinutes = DefaultWHOWeeklyMinutes
	}
	return &Aggregator{
		caloriesPerMinute: cfg.CaloriesPerMinute,
		whoWeeklyMinutes:  cfg.WHOWeeklyMinutes,
	}
}

// WeeklyMinutes is the walking time of roundTrips return trips per week.
func WeeklyMinutes(oneWayMin float64, roundTrips int) float64 {
	return geo.Round1(oneWayMin * 2 * float64(roundTrips))
}

// Grade maps a guideline percentage to a letter grade.
func Grade(pct float64) string {
	switch {
	case pct >= 150:
		return "A+"
	case pct >= 100:
		return "A"
	case pct >= 75:
		return "B"
	case pct >= 50:
		return "C"
	case pct >= 25:
		return "D"
	default:
		return "F"
	}
}

// Aggregate computes the totals over rows. Rows are kept in order.
func (a *Aggregator) Aggregate(rows []BreakdownItem) Result {
	if rows == nil {
		rows = []BreakdownItem{}
	}

	var sum float64
	for _, r := range rows {
		sum += r.WeeklyMinutes
	}
	total := geo.Round1(sum)
	pct := geo.Round1(total / a.whoWeeklyMinutes * 100)

	return Result{
		TotalWeeklyWalkMin:  total,
		TotalWeeklyCalories: int(math.Round(total * a.caloriesPerMinute)),
		WHOGuidelinePct:     pct,
		Grade:               Grade(pct),
		Breakdown:           rows,
	}
}

// CommuteRow builds the commute row from a resolved commute.
func CommuteRow(c *transit.CommuteResult, pref transit.Preference, workDays int) BreakdownItem {
	mode := string(c.Mode)
	if pref == transit.PreferWalk {
		mode = CommuteModeWalk
	}
	return BreakdownItem{
		Label:             CommuteLabel(c),
		DistanceKm:        c.TotalWalkKm,
		OneWayMin:         c.TotalWalkMin,
		RoundTripsPerWeek: workDays,
		WeeklyMinutes:     WeeklyMinutes(c.TotalWalkMin, workDays),
		CommuteMode:       mode,
		Source:            c.Source,
		CommuteDetail:     c,
	}
}

// CommuteLabel names the commute after the stops walked to and from.
func CommuteLabel(c *transit.CommuteResult) string {
	if c.Mode != transit.ModeTransit {
		return LabelCommuteFullWalk
	}
	switch {
	case c.HomeToTransit != nil && c.TransitToWork != nil:
		return "Walk to " + c.HomeToTransit.StopName + " + walk from " + c.TransitToWork.StopName + " to work"
	case c.HomeToTransit != nil:
		return "Walk to " + c.HomeToTransit.StopName + " + transit to work"
	default:
		return LabelCommute
	}
}

// AmenityRow builds the row for visits return trips to a place.
func AmenityRow(amenityType, placeName string, route *routing.WalkRoute, visits int) BreakdownItem {
	return BreakdownItem{
		Label:             AmenityLabel(amenityType, placeName),
		AmenityType:       amenityType,
		DistanceKm:        route.DistanceKm,
		OneWayMin:         route.DurationMin,
		RoundTripsPerWeek: visits,
		WeeklyMinutes:     WeeklyMinutes(route.DurationMin, visits),
		Source:            route.Source,
	}
}

// AmenityLabel is the amenity type with its first letter upper-cased,
// followed by the place name in parentheses.
func AmenityLabel(amenityType, placeName string) string {
	return capitalize(strings.TrimSpace(amenityType)) + " (" + placeName + ")"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
