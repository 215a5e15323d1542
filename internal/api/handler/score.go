package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/api/models"
	"github.com/homestride/homestride/internal/api/response"
	"github.com/homestride/homestride/internal/score"
)

// Scorer computes and recomputes walk scores. *score.Service implements it.
type Scorer interface {
	ComputeScore(ctx context.Context, req score.Request) (*score.Result, error)
	Recompute(prev score.Result, rowIndex int, amenityType string, visits int) (score.Result, error)
}

// ScoreHandler handles score endpoints.
type ScoreHandler struct {
	scorer Scorer
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scorer Scorer) *ScoreHandler {
	return &ScoreHandler{scorer: scorer}
}

// Compute handles POST /v1/score:compute.
func (h *ScoreHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var input models.ScoreRequest
	if !decode(w, r, &input) {
		return
	}

	req, errs := toScoreRequest(input)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid score request", errs)
		return
	}

	result, err := h.scorer.ComputeScore(r.Context(), req)
	switch {
	case errors.Is(err, score.ErrMissingHome):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "home", Message: "invalid location", Code: models.CodeInvalid},
		})
		return
	case err != nil:
		upstreamFailed(w, r, "score computation failed", err)
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// Recompute handles POST /v1/score:recompute. It only re-derives totals from
// the score the client sends back and never calls a provider.
//
// visits_per_week must be within 1..14; values outside that range are
// rejected with 400 rather than clamped, so clients clamp before sending.
// Targeting the commute row returns previous_score unchanged.
func (h *ScoreHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var input models.RecomputeRequest
	if !decode(w, r, &input) {
		return
	}

	var errs []models.FieldError
	if input.Previous == nil {
		errs = append(errs, models.FieldError{Field: "previous_score", Message: "required", Code: models.CodeRequired})
	}
	if input.RowIndex == nil {
		errs = append(errs, models.FieldError{Field: "row_index", Message: "required", Code: models.CodeRequired})
	}
	if input.VisitsPerWeek == nil {
		errs = append(errs, models.FieldError{Field: "visits_per_week", Message: "required", Code: models.CodeRequired})
	} else if v := *input.VisitsPerWeek; v < amenity.MinVisitsPerWeek || v > amenity.MaxVisitsPerWeek {
		errs = append(errs, models.FieldError{Field: "visits_per_week", Message: "must be between 1 and 14", Code: models.CodeOutOfRange})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid recompute request", errs)
		return
	}

	result, err := h.scorer.Recompute(*input.Previous, *input.RowIndex, input.AmenityType, *input.VisitsPerWeek)
	if err != nil {
		if errors.Is(err, score.ErrRowNotFound) {
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "row_index", Message: "does not address an amenity row", Code: models.CodeInvalid},
			})
			return
		}
		response.InternalError(w, r, "recompute failed")
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// toScoreRequest validates the body and converts it to a score.Request.
// Missing visits stay zero so the score service applies its default.
func toScoreRequest(in models.ScoreRequest) (score.Request, []models.FieldError) {
	errs := requirePoint("home", in.Home)
	if in.Work != nil {
		errs = append(errs, in.Work.Validate("work")...)
	}

	pref, ok := commutePreference(in.CommuteMode)
	if !ok {
		errs = append(errs, models.FieldError{Field: "commute_mode", Message: "must be transit or walk", Code: models.CodeInvalid})
	}
	if d := in.WorkDaysPerWeek; d != nil && (*d < 0 || *d > score.MaxWorkDaysPerWeek) {
		errs = append(errs, models.FieldError{Field: "work_days_per_week", Message: "must be between 0 and 7", Code: models.CodeOutOfRange})
	}

	amenities := make([]amenity.Request, 0, len(in.Amenities))
	for i, a := range in.Amenities {
		field := fmt.Sprintf("amenities[%d]", i)
		if strings.TrimSpace(a.AmenityType) == "" {
			errs = append(errs, models.FieldError{Field: field + ".amenity_type", Message: "required", Code: models.CodeRequired})
		}
		req := amenity.Request{AmenityType: amenity.Normalize(a.AmenityType), Nearest: a.Nearest}
		if a.VisitsPerWeek != nil {
			v := *a.VisitsPerWeek
			if v < amenity.MinVisitsPerWeek || v > amenity.MaxVisitsPerWeek {
				errs = append(errs, models.FieldError{Field: field + ".visits_per_week", Message: "must be between 1 and 14", Code: models.CodeOutOfRange})
			}
			req.VisitsPerWeek = v
		}
		amenities = append(amenities, req)
	}

	if len(errs) > 0 {
		return score.Request{}, errs
	}

	req := score.Request{
		Home:            in.Home.Geo(),
		Amenities:       amenities,
		WorkDaysPerWeek: in.WorkDaysPerWeek,
		CommuteMode:     pref,
	}
	if in.Work != nil {
		work := in.Work.Geo()
		req.Work = &work
	}
	return req, nil
}

