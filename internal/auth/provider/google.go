// Package provider implements concrete identity providers for the oauth
// authenticator.
package provider

import (
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/Theadedamola/snapcode-backend/internal/auth/oauth"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleScopeEmail   string = "email"
	googleScopeProfile string = "profile"
)

// Google implements the identityProvider interface for Google sign-in via
// OIDC.
type Google struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type googleClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	p, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &Google{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, googleScopeProfile, googleScopeEmail},
			Endpoint:     endpoints.Google,
		},
		verifier: p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (g *Google) LoginURL(state, nonce string) (string, error) {
	return g.cfg.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// Exchange trades the authorization code for a verified Google identity.
func (g *Google) Exchange(ctx context.Context, code string) (oauth.Identity, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return oauth.Identity{}, err
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return oauth.Identity{}, fmt.Errorf("token response has no id_token")
	}

	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return oauth.Identity{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims googleClaims
	if err := idTok.Claims(&claims); err != nil {
		return oauth.Identity{}, fmt.Errorf("read claims: %w", err)
	}

	return oauth.Identity{
		Nonce:         idTok.Nonce,
		ExternalID:    claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.Verified,
		Avatar:        claims.Picture,
		Name:          nameOrDefault(claims.Name, defaultName(claims)),
	}, nil
}

func nameOrDefault(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

// defaultName derives a stable placeholder from the subject for accounts
// that expose no display name.
func defaultName(claims googleClaims) string {
	id := sha1.New().Sum([]byte(claims.Sub))[:8]
	return fmt.Sprintf("google_%x", id)
}
