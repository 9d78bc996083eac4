package auth

import (
	"context"
	"strings"
)

// Identity is the verified caller for the lifetime of one request. It is
// derived from a bearer token and never persisted.
type Identity struct {
	UserID string
	Email  string
}

// IsZero reports whether the identity is the anonymous identity.
func (id Identity) IsZero() bool {
	return id.UserID == ""
}

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &identity)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil || strings.TrimSpace(v.UserID) == "" {
		return Identity{}, false
	}
	return *v, true
}
