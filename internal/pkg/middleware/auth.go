package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Theadedamola/snapcode-backend/internal/auth/token"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/httpx"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/router"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
	"github.com/Theadedamola/snapcode-backend/internal/store"
)

type ctxKey struct{}

var identityKey ctxKey

// Identity is the authenticated caller attached to the request context by
// the auth gate. It reflects the live user record, not the token claims.
type Identity struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

type userLookup interface {
	GetUserByID(ctx context.Context, id string) (store.User, error)
}

// Auth guards routes behind a bearer access token. The token must verify
// against codec and carry the access kind; refresh tokens are rejected even
// though they share the signing secret. The user is then loaded fresh so a
// deleted account cannot keep using old tokens.
func Auth(codec *token.Codec, users userLookup) router.Middleware {
	return func(next http.Handler) http.Handler {
		return authMiddleware(next, codec, users)
	}
}

func authMiddleware(next http.Handler, codec *token.Codec, users userLookup) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.HandleErr(w, r, serr.NewServiceError(nil, http.StatusUnauthorized, "Unauthorized"))
			return
		}

		claims, err := codec.Verify(raw)
		if err != nil {
			// the raw token never reaches the logs, only the verdict
			se := serr.NewServiceError(err, http.StatusUnauthorized, "Unauthorized")
			se.Env["reason"] = verifyReason(err)
			httpx.HandleErr(w, r, se)
			return
		}

		if claims.Kind != token.KindAccess {
			se := serr.NewServiceError(nil, http.StatusUnauthorized, "Unauthorized")
			se.Env["reason"] = "non-access token on protected route"
			httpx.HandleErr(w, r, se)
			return
		}

		user, err := users.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusUnauthorized, "User not found"))
				return
			}

			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusServiceUnavailable, "Service unavailable"))
			return
		}

		ctx := WithIdentity(r.Context(), Identity{
			ID:     user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Avatar: user.Avatar,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", false
	}
	return raw, true
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "token expired"
	case errors.Is(err, token.ErrMalformed):
		return "token malformed"
	default:
		return "token rejected"
	}
}

// WithIdentity returns a context carrying id as the authenticated caller.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by Auth, or the zero Identity
// on unauthenticated requests.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
