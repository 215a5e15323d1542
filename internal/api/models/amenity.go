package models

import "github.com/homestride/homestride/internal/amenity"

// Bounds for amenity search parameters.
const (
	MinSearchRadiusM = 100
	MaxSearchRadiusM = 10000
	MaxSearchLimit   = 20
)

// AmenitySearchRequest is the body of POST /v1/amenities/search.
// Zero RadiusM and Limit take the server defaults.
type AmenitySearchRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	AmenityType string   `json:"amenity_type"`
	RadiusM     int      `json:"radius_m,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// AmenitySearchResponse lists candidates nearest first.
type AmenitySearchResponse struct {
	AmenityType string          `json:"amenity_type"`
	Results     []amenity.Place `json:"results"`
}

// AmenityTypesResponse lists the known amenity categories.
type AmenityTypesResponse struct {
	Types []string `json:"types"`
}
