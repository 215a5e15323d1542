// Package polyline implements the encoded polyline format used by the
// routing and transit providers for route geometry.
// Format reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// ErrMalformed is returned when an encoded polyline is truncated or contains
// characters outside the encoding alphabet.
var ErrMalformed = errors.New("malformed polyline")

// DefaultPrecision is the number of decimal places used by Google, ORS and OSRM.
const DefaultPrecision = 5

// Coordinate is a decoded polyline vertex.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Decode decodes a polyline at DefaultPrecision.
func Decode(encoded string) ([]Coordinate, error) {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a polyline encoded with the given number of decimal places.
func DecodePrecision(encoded string, precision int) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow(10, float64(precision))
	coords := make([]Coordinate, 0, len(encoded)/4)
	var lat, lng int
	index := 0

	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		dLng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next
		lat += dLat
		lng += dLng

		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return coords, nil
}

func decodeValue(encoded string, index int) (int, int, error) {
	var result, shift int
	for {
		if index >= len(encoded) {
			return 0, index, ErrMalformed
		}
		b := int(encoded[index]) - 63
		if b < 0 || b > 0x3f {
			return 0, index, ErrMalformed
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode encodes coordinates at DefaultPrecision.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow(10, DefaultPrecision)
	buf := make([]byte, 0, len(coords)*6)
	var prevLat, prevLng int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * factor))
		lng := int(math.Round(c.Lng * factor))
		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lng-prevLng)
		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Length returns the haversine length of the line in meters.
func Length(coords []Coordinate) float64 {
	const earthRadiusMeters = 6371000.0

	var total float64
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		lat1 := a.Lat * math.Pi / 180
		lat2 := b.Lat * math.Pi / 180
		sinDLat := math.Sin((b.Lat - a.Lat) * math.Pi / 360)
		sinDLng := math.Sin((b.Lng - a.Lng) * math.Pi / 360)
		h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
		total += 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
	}
	return total
}
