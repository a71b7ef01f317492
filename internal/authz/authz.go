// Package authz decides whether a caller may touch a resource.
package authz

import "errors"

// ErrNotOwner reports that the resource exists but belongs to someone else.
// Callers surface it as a plain not-found so resource ids cannot be probed.
var ErrNotOwner = errors.New("not resource owner")

// Owned is any resource that carries its owner's user id.
type Owned interface {
	OwnerID() string
}

// CheckOwner compares the caller's user id against the resource owner.
// The comparison is exact: empty ids never match anything.
func CheckOwner(userID string, res Owned) error {
	if userID == "" || userID != res.OwnerID() {
		return ErrNotOwner
	}
	return nil
}
