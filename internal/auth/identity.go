// Package auth resolves the caller identity carried in the Authorization header.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned when an Authorization header is present
// but cannot be turned into an identity.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is an authenticated caller. Subject is also the ownership key
// stored on every item the caller creates.
type Identity struct {
	Subject string
	Admin   bool
}

// CanAccess reports whether the identity may read or modify a record owned by owner.
func (i Identity) CanAccess(owner string) bool {
	return i.Admin || i.Subject == owner
}

// Authenticator turns a non-empty Authorization header value into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (Identity, error)
}

// HeaderAuthenticator trusts the raw header value as the identity.
// The value equal to AdminIdentity is the administrative caller.
type HeaderAuthenticator struct {
	AdminIdentity string
}

// NewHeaderAuthenticator creates a HeaderAuthenticator with the given admin sentinel.
func NewHeaderAuthenticator(adminIdentity string) *HeaderAuthenticator {
	return &HeaderAuthenticator{AdminIdentity: adminIdentity}
}

// Authenticate implements Authenticator.
func (a *HeaderAuthenticator) Authenticate(_ context.Context, header string) (Identity, error) {
	if header == "" {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{
		Subject: header,
		Admin:   a.AdminIdentity != "" && header == a.AdminIdentity,
	}, nil
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by WithIdentity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
