// Package identity exchanges bearer credentials for verified user identities
// via the managed auth provider. It owns no identity state: the provider is
// the source of truth and this package only normalizes its answers.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrMissingToken indicates the request carried no bearer credential.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates the provider rejected the credential.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Identity is the normalized verified identity returned by the auth provider.
type Identity struct {
	UID           string
	Email         string
	Name          string
	EmailVerified bool
	GoogleLinked  bool
}

// Verifier validates a bearer credential and resolves the identity behind it.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}
