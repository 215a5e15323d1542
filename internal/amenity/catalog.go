// Package amenity finds nearby points of interest by category and resolves
// the nearest walkable one for each amenity a user visits.
package amenity

import (
	"sort"
	"strings"

	"github.com/homestride/homestride/internal/overpass"
)

func tag(key, value string) overpass.Tag { return overpass.Tag{Key: key, Value: value} }

func group(tags ...overpass.Tag) overpass.TagGroup { return tags }

// catalog maps friendly category names onto OSM tag filters. Tags inside a
// group must all match; any group may match.
var catalog = map[string][]overpass.TagGroup{
	"gym":           {group(tag("leisure", "fitness_centre"))},
	"fitness":       {group(tag("leisure", "fitness_centre"))},
	"cafe":          {group(tag("amenity", "cafe"))},
	"coffee":        {group(tag("amenity", "cafe"), tag("cuisine", "coffee_shop"))},
	"coffee shop":   {group(tag("amenity", "cafe"), tag("cuisine", "coffee_shop"))},
	"restaurant":    {group(tag("amenity", "restaurant"))},
	"supermarket":   {group(tag("shop", "supermarket"))},
	"grocery":       {group(tag("shop", "supermarket")), group(tag("shop", "convenience"))},
	"grocery store": {group(tag("shop", "supermarket")), group(tag("shop", "convenience"))},
	"pharmacy":      {group(tag("amenity", "pharmacy"))},
	"park":          {group(tag("leisure", "park"))},
	"library":       {group(tag("amenity", "library"))},
	"bar":           {group(tag("amenity", "bar"))},
	"bank":          {group(tag("amenity", "bank"))},
	"hospital":      {group(tag("amenity", "hospital"))},
	"school":        {group(tag("amenity", "school"))},
	"bakery":        {group(tag("shop", "bakery"))},
	"path":          {group(tag("highway", "path"))},
	"beach":         {group(tag("natural", "beach"))},
	"dog_park":      {group(tag("leisure", "dog_park"))},
	"yoga":          {group(tag("leisure", "fitness_centre"), tag("sport", "yoga"))},
	"swimming_pool": {group(tag("leisure", "swimming_pool"))},
	"kindergarten":  {group(tag("amenity", "kindergarten"))},
	"mall":          {group(tag("shop", "mall")), group(tag("shop", "department_store"))},
	"bus_station":   {group(tag("amenity", "bus_station")), group(tag("highway", "bus_stop"))},
	"museum":        {group(tag("tourism", "museum"))},
}

var (
	canteenWords   = []string{"dining hall", "canteen", "cafeteria"}
	foodHallWords  = []string{"dining hall", "canteen", "cafeteria", "food court", "food hall"}
	excludeByNames = map[string][]string{
		"cafe":        canteenWords,
		"coffee":      foodHallWords,
		"coffee shop": foodHallWords,
	}
)

// Normalize lower-cases and trims a category name.
func Normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// TagGroups returns the tag filter for a category. Categories outside the
// catalog are treated as a raw OSM amenity value.
func TagGroups(category string) []overpass.TagGroup {
	key := Normalize(category)
	if groups, ok := catalog[key]; ok {
		return groups
	}
	return []overpass.TagGroup{group(tag("amenity", key))}
}

// Known reports whether the category is in the catalog.
func Known(category string) bool {
	_, ok := catalog[Normalize(category)]
	return ok
}

// Categories lists the catalog's category names, sorted.
func Categories() []string {
	out := make([]string, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// excluded reports whether a result name contains a keyword that marks it as
// a misclassified entry for the category.
func excluded(category, name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range excludeByNames[Normalize(category)] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
