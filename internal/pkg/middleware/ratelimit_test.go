package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/router"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	defer rl.Stop()

	r := router.New()
	r.Use(rl.Middleware())
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/ok", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	r := router.New()
	r.Use(rl.Middleware())
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/ok", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiter_KeysByAddress(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	r := router.New()
	r.Use(rl.Middleware())
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	anon := httptest.NewRequest("GET", "/ok", nil)
	anon.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a signed-in request from the same address draws from the same bucket
	authed := httptest.NewRequest("GET", "/ok", nil)
	authed.RemoteAddr = "1.2.3.4:5678"
	authed = authed.WithContext(WithIdentity(authed.Context(), Identity{ID: "user-1"}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authed)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	r := router.New()
	r.Use(rl.Middleware())
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRequest("GET", "/ok", nil)
	first.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest("GET", "/ok", nil)
	second.RemoteAddr = "5.6.7.8:5678"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}
