// Package session tracks issued refresh tokens. A token is valid while an
// entry for it exists and its expiry has not passed; logout removes the
// entry, and expired entries are treated as absent.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("refresh token not found")

// Entry records who a refresh token belongs to and when it stops working.
// The expiry is fixed at issuance; redeeming the token never extends it.
type Entry struct {
	UserID    string
	ExpiresAt time.Time
}

// Store is the refresh token store contract. Implementations must make each
// operation atomic per token: a Get never observes a half-written entry,
// and Revoke of an absent token is a no-op, not an error.
type Store interface {
	Put(ctx context.Context, token string, e Entry) error
	// Get returns ErrNotFound for tokens that were never stored, were
	// revoked, or have expired.
	Get(ctx context.Context, token string) (Entry, error)
	Revoke(ctx context.Context, token string) error
}
