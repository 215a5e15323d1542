package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestride/homestride/internal/api/middleware"
	"github.com/homestride/homestride/internal/api/models"
)

func limited(limit int) http.Handler {
	cfg := middleware.RateLimitConfig{RequestLimit: limit, WindowLength: time.Minute}
	return middleware.RequestID(middleware.RateLimitByIP(cfg)(okHandler))
}

func hit(h http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		sequence []string // remote addresses, in order
		want     []int
	}{
		{
			name:     "within limit",
			limit:    3,
			sequence: []string{"192.0.2.1:1000", "192.0.2.1:1001", "192.0.2.1:1002"},
			want:     []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
		{
			name:     "over limit",
			limit:    2,
			sequence: []string{"192.0.2.2:1000", "192.0.2.2:1000", "192.0.2.2:1000"},
			want:     []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:     "separate budgets per address",
			limit:    1,
			sequence: []string{"192.0.2.3:1000", "192.0.2.3:1000", "192.0.2.4:1000"},
			want:     []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := limited(tt.limit)
			for i, addr := range tt.sequence {
				rec := hit(h, "/v1/score:compute", addr)
				assert.Equal(t, tt.want[i], rec.Code, "request %d from %s", i+1, addr)
			}
		})
	}
}

func TestRateLimitByIP_ProblemBody(t *testing.T) {
	h := limited(1)
	addr := "198.51.100.7:4242"

	require.Equal(t, http.StatusOK, hit(h, "/v1/amenities/search", addr).Code)
	rec := hit(h, "/v1/amenities/search", addr)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var p models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, models.ProblemTypeTooManyRequests, p.Type)
	assert.Equal(t, "/v1/amenities/search", p.Instance)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), p.TraceID)
	assert.Contains(t, p.Detail, "Rate limit exceeded")
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg  middleware.RateLimitConfig
		want int
	}{
		"expensive": {middleware.ExpensiveRateLimit, 20},
		"provider":  {middleware.ProviderRateLimit, 60},
		"standard":  {middleware.StandardRateLimit, 300},
	} {
		assert.Equal(t, tc.want, tc.cfg.RequestLimit, name)
		assert.Equal(t, time.Minute, tc.cfg.WindowLength, name)
	}
}
