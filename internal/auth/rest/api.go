// Package rest exposes the auth endpoints: Google sign-in, token refresh,
// logout and the current-user probe.
package rest

import (
	"context"
	"net/http"

	"github.com/Theadedamola/snapcode-backend/internal/auth/oauth"
	"github.com/Theadedamola/snapcode-backend/internal/auth/service"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/httpx"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/middleware"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/router"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
)

type authService interface {
	LoginURL(env oauth.Env, provider string) (string, error)
	Callback(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
}

type API struct {
	srv  authService
	gate router.Middleware
	mux  *http.ServeMux
}

// NewAPI mounts the auth routes. gate guards the routes that require a
// signed-in caller; the login and refresh routes stay public.
func NewAPI(srv authService, gate router.Middleware) *API {
	api := &API{
		srv:  srv,
		gate: gate,
		mux:  http.NewServeMux(),
	}
	api.mount()
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.mux.HandleFunc("GET /{provider}", a.handleLogin)
	a.mux.HandleFunc("GET /{provider}/callback", a.handleCallback)
	a.mux.HandleFunc("POST /refresh-token", a.handleRefresh)
	a.mux.Handle("POST /logout", a.gate(http.HandlerFunc(a.handleLogout)))
	a.mux.Handle("GET /me", a.gate(http.HandlerFunc(a.handleMe)))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("provider")
	url, err := a.srv.LoginURL(oauth.NewHTTPEnv(w, r), p)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	resp, err := a.srv.Callback(r.Context(), oauth.NewHTTPEnv(w, r), service.CallbackRequest{
		Provider: r.PathValue("provider"),
		Code:     r.URL.Query().Get("code"),
		State:    r.URL.Query().Get("state"),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, resp.RedirectURL, http.StatusFound)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "Refresh token is required"))
		return
	}
	if req.RefreshToken == "" {
		httpx.HandleErr(w, r, serr.NewServiceError(nil, http.StatusBadRequest, "Refresh token is required"))
		return
	}

	accessToken, err := a.srv.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutResponse struct {
	Message string `json:"message"`
}

// handleLogout always reports success: revoking an unknown or already
// revoked token changes nothing.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	_ = httpx.ReadJSON(r, &req)

	if req.RefreshToken != "" {
		if err := a.srv.Logout(r.Context(), req.RefreshToken); err != nil {
			httpx.HandleErr(w, r, err)
			return
		}
	}

	if err := httpx.WriteJSON(w, http.StatusOK, logoutResponse{Message: "Logged out successfully"}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type meResponse struct {
	User meUser `json:"user"`
}

type meUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	err := httpx.WriteJSON(w, http.StatusOK, meResponse{
		User: meUser{
			ID:     id.ID,
			Name:   id.Name,
			Email:  id.Email,
			Avatar: id.Avatar,
		},
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
	}
}
