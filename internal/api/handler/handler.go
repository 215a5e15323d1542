// Package handler provides HTTP handlers for the HomeStride API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/api/response"
)

// decode reads the JSON body and writes a 400 problem on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := response.DecodeJSON(w, r, dst); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return false
	}
	return true
}

// requirePoint validates a required coordinate pair.
func requirePoint(field string, p *models.Point) []models.FieldError {
	if p == nil {
		return []models.FieldError{{Field: field, Message: "required", Code: models.CodeRequired}}
	}
	return p.Validate(field)
}

// requireLatLng validates a coordinate given as two separate fields.
func requireLatLng(lat, lng *float64) []models.FieldError {
	var errs []models.FieldError
	if lat == nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "required", Code: models.CodeRequired})
	}
	if lng == nil {
		errs = append(errs, models.FieldError{Field: "lng", Message: "required", Code: models.CodeRequired})
	}
	if len(errs) > 0 {
		return errs
	}
	return models.Point{Lat: lat, Lng: lng}.Validate("location")
}

// upstreamFailed writes the response for an error that is not the caller's
// fault: 503 when the request was cancelled or timed out, 502 otherwise.
func upstreamFailed(w http.ResponseWriter, r *http.Request, detail string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		response.ServiceUnavailable(w, r, "request timed out")
		return
	}
	response.BadGateway(w, r, detail)
}
