package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestride/homestride/internal/api/models"
)

func TestNewProblem(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, "req_test123")

	assert.Equal(t, models.ProblemTypeTLSRequired, p.Type)
	assert.Equal(t, "TLS required", p.Title)
	assert.Equal(t, http.StatusForbidden, p.Status)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Empty(t, p.Detail)
	assert.Nil(t, p.Errors)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid score request", []models.FieldError{
		{Field: "amenities[0].visits_per_week", Message: "must be between 1 and 14", Code: models.CodeOutOfRange},
	})
	p.Instance = "/v1/score:compute"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, "invalid score request", result.Detail)
	assert.Equal(t, "/v1/score:compute", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "amenities[0].visits_per_week", result.Errors[0].Field)
	assert.Equal(t, models.CodeOutOfRange, result.Errors[0].Code)
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewNotFound("", "address not found").Write(w)

	assert.Equal(t, http.StatusNotFound, w.Code)
	_, present := w.Header()["X-Request-Id"]
	assert.False(t, present)
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"not found", models.NewNotFound("req_123", "address not found"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"unsupported media type", models.NewUnsupportedMediaType("req_123", "use json"), models.ProblemTypeUnsupportedMediaType, "Unsupported media type", http.StatusUnsupportedMediaType},
		{"too many requests", models.NewTooManyRequests("req_123", "slow down"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_123", "boom"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"bad gateway", models.NewBadGateway("req_123", "overpass down"), models.ProblemTypeUpstream, "Upstream provider unavailable", http.StatusBadGateway},
		{"unavailable", models.NewServiceUnavailable("req_123", "timed out"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "req_123", tt.problem.TraceID)
			assert.NotEmpty(t, tt.problem.Detail)
		})
	}
}

func TestForStatus_UnknownStatus(t *testing.T) {
	p := models.ForStatus(http.StatusTeapot, "req_1", "odd")

	assert.Equal(t, http.StatusTeapot, p.Status)
	assert.Equal(t, models.ProblemTypeInternal, p.Type)
}
