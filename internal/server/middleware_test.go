package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	s := newTestServer(newStubEngine(), &stubRecognizer{})

	handler := s.corsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSMiddleware_PreflightShortCircuits(t *testing.T) {
	s := newTestServer(newStubEngine(), &stubRecognizer{})

	called := false
	handler := s.corsMiddleware(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called, "OPTIONS must not reach the wrapped handler")
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer(newStubEngine(), &stubRecognizer{})

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for range 10 {
		id := newRequestID()
		assert.NotEmpty(t, id)
		seen[id] = true
	}
	assert.NotEmpty(t, seen)
}
