package overpass

import (
	"fmt"
	"strings"

	"github.com/homestride/homestride/internal/geo"
)

// Tag is one tag filter. An empty Value matches any value of Key.
type Tag struct {
	Key   string
	Value string
}

// TagGroup matches elements carrying every tag in the group.
type TagGroup []Tag

func (g TagGroup) filter() string {
	var b strings.Builder
	for _, t := range g {
		if t.Value == "" {
			fmt.Fprintf(&b, "[%q]", t.Key)
			continue
		}
		fmt.Fprintf(&b, "[%q=%q]", t.Key, t.Value)
	}
	return b.String()
}

// NearbyQuery builds a query for nodes and ways within radiusM of p that match
// any of the groups. Ways are returned with their center.
func NearbyQuery(p geo.Point, radiusM int, groups []TagGroup) string {
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", radiusM, p.Lat, p.Lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, g := range groups {
		f := g.filter()
		fmt.Fprintf(&b, "  node%s%s;\n", f, around)
		fmt.Fprintf(&b, "  way%s%s;\n", f, around)
	}
	b.WriteString(");\nout center body;")
	return b.String()
}

// NodeQuery builds a query for nodes only within radiusM of p that match any
// of the groups.
func NodeQuery(p geo.Point, radiusM int, groups []TagGroup) string {
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", radiusM, p.Lat, p.Lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "  node%s%s;\n", g.filter(), around)
	}
	b.WriteString(");\nout body;")
	return b.String()
}
