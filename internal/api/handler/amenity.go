package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/api/response"
	"github.com/homestride/homestride/internal/geo"
)

// AmenitySearcher finds nearby amenities. *amenity.Searcher implements it.
type AmenitySearcher interface {
	Search(ctx context.Context, origin geo.Point, category string, radiusM, limit int) ([]amenity.Place, error)
}

// AmenityHandler handles amenity endpoints.
type AmenityHandler struct {
	searcher      AmenitySearcher
	defaultRadius int
	defaultLimit  int
}

// NewAmenityHandler creates a new AmenityHandler. defaultRadius and
// defaultLimit apply when a request leaves them unset.
func NewAmenityHandler(searcher AmenitySearcher, defaultRadius, defaultLimit int) *AmenityHandler {
	return &AmenityHandler{
		searcher:      searcher,
		defaultRadius: defaultRadius,
		defaultLimit:  defaultLimit,
	}
}

// Search handles POST /v1/amenities/search.
func (h *AmenityHandler) Search(w http.ResponseWriter, r *http.Request) {
	var input models.AmenitySearchRequest
	if !decode(w, r, &input) {
		return
	}

	errs := requireLatLng(input.Lat, input.Lng)
	if strings.TrimSpace(input.AmenityType) == "" {
		errs = append(errs, models.FieldError{Field: "amenity_type", Message: "required", Code: models.CodeRequired})
	}
	radius := input.RadiusM
	if radius == 0 {
		radius = h.defaultRadius
	} else if radius < models.MinSearchRadiusM || radius > models.MaxSearchRadiusM {
		errs = append(errs, models.FieldError{Field: "radius_m", Message: "must be between 100 and 10000", Code: models.CodeOutOfRange})
	}
	limit := input.Limit
	if limit == 0 {
		limit = h.defaultLimit
	} else if limit < 1 || limit > models.MaxSearchLimit {
		errs = append(errs, models.FieldError{Field: "limit", Message: "must be between 1 and 20", Code: models.CodeOutOfRange})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid amenity search", errs)
		return
	}

	category := amenity.Normalize(input.AmenityType)
	places, err := h.searcher.Search(r.Context(), geo.Point{Lat: *input.Lat, Lng: *input.Lng}, category, radius, limit)
	if err != nil {
		if errors.Is(err, amenity.ErrEmptyCategory) || errors.Is(err, geo.ErrInvalidCoordinates) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		upstreamFailed(w, r, "amenity search unavailable", err)
		return
	}
	if places == nil {
		places = []amenity.Place{}
	}

	response.JSON(w, r, http.StatusOK, models.AmenitySearchResponse{AmenityType: category, Results: places})
}

// Types handles GET /v1/amenities/types.
func (h *AmenityHandler) Types(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	response.JSON(w, r, http.StatusOK, models.AmenityTypesResponse{Types: amenity.Categories()})
}
