// Package service implements the sign-in flow: completing the Google
// handshake, minting the access/refresh pair and redeeming refresh tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Theadedamola/snapcode-backend/internal/auth/oauth"
	"github.com/Theadedamola/snapcode-backend/internal/auth/session"
	"github.com/Theadedamola/snapcode-backend/internal/auth/token"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/store"
)

// msgBadRefresh deliberately covers every refresh failure mode so a caller
// cannot tell a revoked token from an expired or unknown one.
const msgBadRefresh = "Invalid or expired refresh token"

type authenticator interface {
	LoginURL(env oauth.Env, provider string) (string, error)
	Exchange(ctx context.Context, env oauth.Env, provider, code, state string) (oauth.Identity, error)
}

type userStore interface {
	GetUserByGoogleID(ctx context.Context, googleID string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, r store.CreateUserRequest) (store.User, error)
}

type sessionCodec interface {
	Issue(kind token.Kind, userID, email string) (string, error)
	Verify(raw string) (token.Claims, error)
}

type loginMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// Auth orchestrates login, token refresh and logout.
type Auth struct {
	auth      authenticator
	store     userStore
	sessions  session.Store
	codec     sessionCodec
	metrics   loginMetrics
	clientURL string
}

type AuthOption func(*Auth) *Auth

func WithAuthenticator(a authenticator) AuthOption {
	return func(s *Auth) *Auth {
		s.auth = a
		return s
	}
}

func WithStore(st userStore) AuthOption {
	return func(s *Auth) *Auth {
		s.store = st
		return s
	}
}

func WithSessions(ss session.Store) AuthOption {
	return func(s *Auth) *Auth {
		s.sessions = ss
		return s
	}
}

func WithCodec(c sessionCodec) AuthOption {
	return func(s *Auth) *Auth {
		s.codec = c
		return s
	}
}

func WithClientURL(u string) AuthOption {
	return func(s *Auth) *Auth {
		s.clientURL = u
		return s
	}
}

func WithMetrics(m loginMetrics) AuthOption {
	return func(s *Auth) *Auth {
		s.metrics = m
		return s
	}
}

func NewAuth(opts ...AuthOption) *Auth {
	s := &Auth{}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.auth == nil {
		panic("oauth authenticator is required")
	}

	if s.store == nil {
		panic("store is required")
	}

	if s.sessions == nil {
		panic("session store is required")
	}

	if s.codec == nil {
		panic("token codec is required")
	}

	if s.clientURL == "" {
		panic("client url is required")
	}

	return s
}

// LoginURL generates the consent URL for the given provider.
func (s *Auth) LoginURL(env oauth.Env, provider string) (string, error) {
	u, err := s.auth.LoginURL(env, provider)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "oauth provider not found")
			sErr.Env["provider"] = provider
			return "", sErr
		}

		return "", fmt.Errorf("login url: %w", err)
	}

	return u, nil
}

type CallbackRequest struct {
	Provider string
	Code     string
	State    string
}

type CallbackResponse struct {
	User         store.User
	AccessToken  string
	RefreshToken string
	RedirectURL  string
}

// Callback completes the handshake and starts a session: the provider's
// identity is mapped to a local user, an access/refresh pair is minted and
// the refresh token is registered so it can later be redeemed or revoked.
// The caller is sent back to the web client with both tokens in the query.
func (s *Auth) Callback(ctx context.Context, env oauth.Env, r CallbackRequest) (CallbackResponse, error) {
	id, err := s.auth.Exchange(ctx, env, r.Provider, r.Code, r.State)
	if err != nil {
		s.recordLoginFailure()

		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "oauth provider not found")
			sErr.Env["provider"] = r.Provider
			return CallbackResponse{}, sErr
		}

		if errors.Is(err, oauth.ErrAuthFailed) {
			sErr := serr.NewServiceError(err, http.StatusUnauthorized, "Authentication failed")
			sErr.Env["provider"] = r.Provider
			return CallbackResponse{}, sErr
		}

		return CallbackResponse{}, fmt.Errorf("exchange: %w", err)
	}

	usr, err := s.getOrCreateUser(ctx, id)
	if err != nil {
		s.recordLoginFailure()
		return CallbackResponse{}, fmt.Errorf("get or create user: %w", err)
	}

	at, err := s.codec.Issue(token.KindAccess, usr.ID, usr.Email)
	if err != nil {
		s.recordLoginFailure()
		return CallbackResponse{}, fmt.Errorf("issue access token: %w", err)
	}

	rt, err := s.codec.Issue(token.KindRefresh, usr.ID, usr.Email)
	if err != nil {
		s.recordLoginFailure()
		return CallbackResponse{}, fmt.Errorf("issue refresh token: %w", err)
	}

	// the session entry mirrors the token's own expiry so the store and the
	// signature agree on when the token dies
	claims, err := s.codec.Verify(rt)
	if err != nil {
		s.recordLoginFailure()
		return CallbackResponse{}, fmt.Errorf("verify issued refresh token: %w", err)
	}

	if err := s.sessions.Put(ctx, rt, session.Entry{
		UserID:    usr.ID,
		ExpiresAt: claims.ExpiresAt,
	}); err != nil {
		s.recordLoginFailure()
		return CallbackResponse{}, fmt.Errorf("register refresh token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	q := url.Values{}
	q.Set("accessToken", at)
	q.Set("refreshToken", rt)

	return CallbackResponse{
		User:         usr,
		AccessToken:  at,
		RefreshToken: rt,
		RedirectURL:  fmt.Sprintf("%s/auth/callback?%s", s.clientURL, q.Encode()),
	}, nil
}

// Refresh redeems a refresh token for a new access token. The refresh token
// itself is untouched: it keeps its original expiry and stays valid until
// then or until logout. All failure modes surface as the same 401.
func (s *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return "", serr.NewServiceError(err, http.StatusUnauthorized, msgBadRefresh)
	}
	if claims.Kind != token.KindRefresh {
		return "", serr.NewServiceError(nil, http.StatusUnauthorized, msgBadRefresh)
	}

	entry, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", serr.NewServiceError(err, http.StatusUnauthorized, msgBadRefresh)
		}

		return "", fmt.Errorf("get session: %w", err)
	}
	if !time.Now().Before(entry.ExpiresAt) {
		return "", serr.NewServiceError(nil, http.StatusUnauthorized, msgBadRefresh)
	}

	usr, err := s.store.GetUserByID(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", serr.NewServiceError(err, http.StatusUnauthorized, "User not found")
		}

		return "", fmt.Errorf("get user: %w", err)
	}

	at, err := s.codec.Issue(token.KindAccess, usr.ID, usr.Email)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	return at, nil
}

// Logout revokes the refresh token. Unknown tokens revoke cleanly so the
// call is idempotent; already-issued access tokens stay valid until expiry.
func (s *Auth) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// getOrCreateUser maps the provider identity to a local user, creating one
// on first sign-in. Profile fields stick at creation: later logins never
// update name, email or avatar.
func (s *Auth) getOrCreateUser(ctx context.Context, id oauth.Identity) (store.User, error) {
	usr, err := s.store.GetUserByGoogleID(ctx, id.ExternalID)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, fmt.Errorf("get user: %w", err)
	}

	usr, err = s.store.CreateUser(ctx, store.CreateUserRequest{
		GoogleID: id.ExternalID,
		Email:    id.VerifiedEmail(),
		Name:     id.Name,
		Avatar:   id.Avatar,
	})
	if err != nil {
		// a concurrent first login won the race; the existing row wins
		if errors.Is(err, store.ErrExists) {
			return s.store.GetUserByGoogleID(ctx, id.ExternalID)
		}

		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	return usr, nil
}

func (s *Auth) recordLoginFailure() {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
}
