package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optileno-backend/internal/auth"
	"optileno-backend/internal/config"
	"optileno-backend/internal/goals"
	redisdb "optileno-backend/internal/redis"
)

func testMux() *http.ServeMux {
	return newMux(services{
		goals:  &goals.GoalHandler{},
		secret: []byte("test-secret"),
		cfg:    &config.Config{AllowedOrigins: []string{"*"}},
		cache:  redisdb.NopCache{},
	})
}

func TestRoutes(t *testing.T) {
	mux := testMux()
	token, err := auth.GenerateToken([]byte("test-secret"), 9)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"protected without token", http.MethodGet, "/goals/analysis", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/analytics/metrics", "nope", http.StatusUnauthorized},
		{"wrong method", http.MethodGet, "/goals/ai-refresh", token, http.StatusMethodNotAllowed},
		{"preflight", http.MethodOptions, "/tasks", "", http.StatusOK},
		{"logout", http.MethodPost, "/auth/logout", token, http.StatusOK},
		{"unknown", http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				r.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"https://app.optileno.com"}}
	h := withCORS(cfg, testMux())

	r := httptest.NewRequest(http.MethodOptions, "/goals", nil)
	r.Header.Set("Origin", "https://app.optileno.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "https://app.optileno.com", w.Header().Get("Access-Control-Allow-Origin"))
}
