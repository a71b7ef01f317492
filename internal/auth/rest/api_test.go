package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Theadedamola/snapcode-backend/internal/auth/oauth"
	"github.com/Theadedamola/snapcode-backend/internal/auth/service"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/middleware"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authServiceMock struct {
	loginURL func(env oauth.Env, provider string) (string, error)
	callback func(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error)
	refresh  func(ctx context.Context, refreshToken string) (string, error)
	logout   func(ctx context.Context, refreshToken string) error
}

func (m *authServiceMock) LoginURL(env oauth.Env, provider string) (string, error) {
	return m.loginURL(env, provider)
}

func (m *authServiceMock) Callback(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error) {
	return m.callback(ctx, env, r)
}

func (m *authServiceMock) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.refresh(ctx, refreshToken)
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string) error {
	return m.logout(ctx, refreshToken)
}

func passGate(next http.Handler) http.Handler { return next }

func TestLogin_RedirectsToConsent(t *testing.T) {
	api := NewAPI(&authServiceMock{
		loginURL: func(env oauth.Env, provider string) (string, error) {
			assert.Equal(t, "google", provider)
			return "https://accounts.example.com/consent", nil
		},
	}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/google", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.example.com/consent", rec.Header().Get("Location"))
}

func TestLogin_UnknownProvider(t *testing.T) {
	api := NewAPI(&authServiceMock{
		loginURL: func(env oauth.Env, provider string) (string, error) {
			return "", serr.NewServiceError(nil, http.StatusNotFound, "oauth provider not found")
		},
	}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/github", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallback_RedirectsToClient(t *testing.T) {
	api := NewAPI(&authServiceMock{
		callback: func(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error) {
			assert.Equal(t, "google", r.Provider)
			assert.Equal(t, "the-code", r.Code)
			assert.Equal(t, "the-state", r.State)
			return service.CallbackResponse{
				RedirectURL: "https://client.example.com/auth/callback?accessToken=at&refreshToken=rt",
			}, nil
		},
	}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/google/callback?code=the-code&state=the-state", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"https://client.example.com/auth/callback?accessToken=at&refreshToken=rt",
		rec.Header().Get("Location"))
}

func TestCallback_AuthFailed(t *testing.T) {
	api := NewAPI(&authServiceMock{
		callback: func(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error) {
			return service.CallbackResponse{}, serr.NewServiceError(nil, http.StatusUnauthorized, "Authentication failed")
		},
	}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/google/callback?code=bad", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication failed")
}

func TestRefresh(t *testing.T) {
	api := NewAPI(&authServiceMock{
		refresh: func(ctx context.Context, refreshToken string) (string, error) {
			assert.Equal(t, "the-refresh-token", refreshToken)
			return "new-access-token", nil
		},
	}, passGate)

	body := strings.NewReader(`{"refreshToken":"the-refresh-token"}`)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("POST", "/refresh-token", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new-access-token", resp.AccessToken)
}

func TestRefresh_MissingToken(t *testing.T) {
	api := NewAPI(&authServiceMock{}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("POST", "/refresh-token", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Refresh token is required")
}

func TestRefresh_InvalidToken(t *testing.T) {
	api := NewAPI(&authServiceMock{
		refresh: func(ctx context.Context, refreshToken string) (string, error) {
			return "", serr.NewServiceError(nil, http.StatusUnauthorized, "Invalid or expired refresh token")
		},
	}, passGate)

	body := strings.NewReader(`{"refreshToken":"revoked"}`)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("POST", "/refresh-token", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired refresh token")
}

func TestLogout(t *testing.T) {
	revoked := ""
	api := NewAPI(&authServiceMock{
		logout: func(ctx context.Context, refreshToken string) error {
			revoked = refreshToken
			return nil
		},
	}, passGate)

	body := strings.NewReader(`{"refreshToken":"the-refresh-token"}`)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("POST", "/logout", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the-refresh-token", revoked)
	assert.Contains(t, rec.Body.String(), "Logged out successfully")
}

func TestLogout_WithoutToken(t *testing.T) {
	api := NewAPI(&authServiceMock{
		logout: func(ctx context.Context, refreshToken string) error {
			t.Fatal("nothing to revoke")
			return nil
		},
	}, passGate)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("POST", "/logout", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithIdentity(r.Context(), middleware.Identity{
				ID:     "user-1",
				Name:   "User",
				Email:  "u@example.com",
				Avatar: "https://example.com/a.png",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	api := NewAPI(&authServiceMock{}, asUser)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/me", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, "u@example.com", resp.User.Email)
}

func TestMe_RequiresGate(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}

	api := NewAPI(&authServiceMock{}, deny)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
