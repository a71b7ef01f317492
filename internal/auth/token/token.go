// Package token issues and verifies the signed session tokens. Tokens are
// HS256 JWTs over a single shared secret; validity is proven by signature
// and expiry alone, nothing is stored server-side.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired reports a well-formed token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed reports a token with a bad signature, structure or kind.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the verified content of a session token.
type Claims struct {
	Kind      Kind
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Kind  Kind   `json:"typ"`
	Email string `json:"email"`
}

type Codec struct {
	secret secretProvider
	issuer string
	ttl    map[Kind]time.Duration
}

type CodecConfig struct {
	Secret secretProvider
	Issuer string

	// TODO: both TTLs default to the refresh window (7d); shorten AccessTTL
	// once the web client refreshes transparently on 401.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewCodec(cfg CodecConfig) *Codec {
	return &Codec{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl: map[Kind]time.Duration{
			KindAccess:  cfg.AccessTTL,
			KindRefresh: cfg.RefreshTTL,
		},
	}
}

// Issue signs a token of the given kind for the user. The expiry is the
// kind's configured window from now. Every token carries a unique id, so
// repeat issuances within the same second still produce distinct tokens.
func (c *Codec) Issue(kind Kind, userID, email string) (string, error) {
	ttl, ok := c.ttl[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := time.Now()
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind:  kind,
		Email: email,
	}).SignedString(c.secret.Get())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tk, nil
}

// Verify parses and validates raw. It fails with ErrExpired when the token
// is past its expiry and ErrMalformed for anything else wrong with it; the
// two are distinguishable with errors.Is.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret.Get(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %w", ErrExpired, err)
		}

		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, claims.Kind)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: empty subject", ErrMalformed)
	}

	out := Claims{
		Kind:   claims.Kind,
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}
