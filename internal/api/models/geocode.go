package models

// ForwardGeocodeRequest is the body of POST /v1/geocode/forward.
type ForwardGeocodeRequest struct {
	Address string `json:"address"`
}

// ReverseGeocodeRequest is the body of POST /v1/geocode/reverse.
type ReverseGeocodeRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// GeocodeResponse is a geocoded location.
type GeocodeResponse struct {
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}
