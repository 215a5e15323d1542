package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/api/response"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/geocoding"
)

// Geocoder resolves addresses. *geocoding.Service implements it.
type Geocoder interface {
	Forward(ctx context.Context, address string) (*geocoding.Result, error)
	Reverse(ctx context.Context, p geo.Point) (*geocoding.Result, error)
}

// GeocodeHandler handles geocoding endpoints.
type GeocodeHandler struct {
	geocoder Geocoder
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(geocoder Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Forward handles POST /v1/geocode/forward.
func (h *GeocodeHandler) Forward(w http.ResponseWriter, r *http.Request) {
	var input models.ForwardGeocodeRequest
	if !decode(w, r, &input) {
		return
	}
	if strings.TrimSpace(input.Address) == "" {
		response.BadRequest(w, r, "address is required", []models.FieldError{
			{Field: "address", Message: "required", Code: models.CodeRequired},
		})
		return
	}

	result, err := h.geocoder.Forward(r.Context(), input.Address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toGeocodeResponse(result))
}

// Reverse handles POST /v1/geocode/reverse.
func (h *GeocodeHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var input models.ReverseGeocodeRequest
	if !decode(w, r, &input) {
		return
	}
	if errs := requireLatLng(input.Lat, input.Lng); len(errs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", errs)
		return
	}

	result, err := h.geocoder.Reverse(r.Context(), geo.Point{Lat: *input.Lat, Lng: *input.Lng})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toGeocodeResponse(result))
}

func (h *GeocodeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geocoding.ErrNotFound):
		response.NotFound(w, r, "no location matches the query")
	case errors.Is(err, geocoding.ErrEmptyQuery), errors.Is(err, geo.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		upstreamFailed(w, r, "geocoding provider unavailable", err)
	}
}

func toGeocodeResponse(res *geocoding.Result) models.GeocodeResponse {
	return models.GeocodeResponse{
		Address:     res.Address,
		Lat:         res.Lat,
		Lng:         res.Lng,
		DisplayName: res.DisplayName,
	}
}
