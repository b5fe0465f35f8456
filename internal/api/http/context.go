package http

import (
	"context"

	"github.com/kavineksith/user-management-api/internal/api/domain"
)

type userContextKey struct{}

// withUser stores the authenticated user in the request context.
func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the authenticated user placed in the context by the
// session middleware. ok is false on routes that never passed through it.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(domain.User)
	return u, ok
}
