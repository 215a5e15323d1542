// Package models provides the request and response bodies of the HomeStride API.
package models

import (
	"time"

	"github.com/homestride/homestride/internal/geo"
)

// Point represents a geographic coordinate. Both fields are pointers so a
// missing coordinate can be told apart from zero.
type Point struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// NewPoint returns a Point with both coordinates set.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: &lat, Lng: &lng}
}

// Geo converts p to the domain coordinate type. Missing coordinates become
// zero; call Validate first.
func (p Point) Geo() geo.Point {
	var g geo.Point
	if p.Lat != nil {
		g.Lat = *p.Lat
	}
	if p.Lng != nil {
		g.Lng = *p.Lng
	}
	return g
}

// Validate checks p and reports problems under the given field name.
func (p Point) Validate(field string) []FieldError {
	var errs []FieldError
	switch {
	case p.Lat == nil:
		errs = append(errs, FieldError{Field: field + ".lat", Message: "required", Code: CodeRequired})
	case *p.Lat < -90 || *p.Lat > 90:
		errs = append(errs, FieldError{Field: field + ".lat", Message: "must be between -90 and 90", Code: CodeOutOfRange})
	}
	switch {
	case p.Lng == nil:
		errs = append(errs, FieldError{Field: field + ".lng", Message: "required", Code: CodeRequired})
	case *p.Lng < -180 || *p.Lng > 180:
		errs = append(errs, FieldError{Field: field + ".lng", Message: "must be between -180 and 180", Code: CodeOutOfRange})
	}
	return errs
}

// Field error codes.
const (
	CodeRequired   = "REQUIRED"
	CodeOutOfRange = "OUT_OF_RANGE"
	CodeInvalid    = "INVALID"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with custom JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 {
		return &time.ParseError{Layout: time.RFC3339, Value: string(data)}
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
