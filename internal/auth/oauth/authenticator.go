// Package oauth manages the handshake with external identity providers.
// The provider protocol itself is delegated to the provider
// implementations; this package owns state/nonce round-tripping and turns
// a completed exchange into a verified identity tuple.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

var (
	ErrProviderConflict = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrAuthFailed       = errors.New("auth failed")
)

// Identity is the verified identity tuple produced by a completed
// handshake.
type Identity struct {
	Nonce         string
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	Avatar        string
}

// VerifiedEmail returns the email only when the provider vouched for it.
func (id *Identity) VerifiedEmail() string {
	if id.EmailVerified {
		return id.Email
	}
	return ""
}

// Env persists small values across the redirect round-trip (state, nonce).
type Env interface {
	Save(key, val string) error
	Load(key string) (string, error)
}

type identityProvider interface {
	LoginURL(state, nonce string) (string, error)
	Exchange(ctx context.Context, code string) (Identity, error)
}

type Authenticator struct {
	mu        sync.RWMutex
	providers map[string]identityProvider
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{
		providers: make(map[string]identityProvider),
	}
}

func (a *Authenticator) Use(name string, p identityProvider) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.providers[name]; ok {
		return ErrProviderConflict
	}

	a.providers[name] = p
	return nil
}

// LoginURL generates the provider's consent URL, stashing a fresh state and
// nonce in env for verification on callback.
func (a *Authenticator) LoginURL(env Env, provider string) (string, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return "", fmt.Errorf("get provider: %w", err)
	}

	state := randString(32)
	if err := env.Save(provider+"_state", state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}

	nonce := randString(32)
	if err := env.Save(provider+"_nonce", nonce); err != nil {
		return "", fmt.Errorf("save nonce: %w", err)
	}

	url, err := p.LoginURL(state, nonce)
	if err != nil {
		return "", fmt.Errorf("get login url: %w", err)
	}

	return url, nil
}

// Exchange completes the handshake: the callback state must match the one
// saved at login, and the provider's identity must echo the saved nonce.
// Provider rejections surface as ErrAuthFailed.
func (a *Authenticator) Exchange(ctx context.Context, env Env, provider, code, state string) (Identity, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return Identity{}, fmt.Errorf("get provider: %w", err)
	}

	saved, err := env.Load(provider + "_state")
	if err != nil {
		return Identity{}, fmt.Errorf("load state: %w", err)
	}
	if saved == "" || saved != state {
		return Identity{}, ErrAuthFailed
	}

	id, err := p.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			switch rerr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return Identity{}, ErrAuthFailed
			}
		}

		return Identity{}, fmt.Errorf("exchange: %w", err)
	}

	nonce, err := env.Load(provider + "_nonce")
	if err != nil {
		return Identity{}, fmt.Errorf("load nonce: %w", err)
	}
	if id.Nonce != nonce {
		return Identity{}, ErrAuthFailed
	}

	return id, nil
}

func (a *Authenticator) getProvider(name string) (identityProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return p, nil
}

func randString(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
