package api

import (
	"context"

	"github.com/mentora/mentora/internal/auth"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var identityContextKey = &contextKey{name: "identity"}

// setIdentity stores the authenticated identity in the request context.
func setIdentity(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, identityContextKey, user)
}

// identityFromContext returns the authenticated identity attached by the
// authentication middleware. The second return value is false for requests
// that did not pass through it.
func identityFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(identityContextKey).(*auth.User)
	return user, ok
}
