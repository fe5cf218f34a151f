package authapi

import (
	"context"

	"beer/cmd/internal/auth/session"
)

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying v.
func WithSession(ctx context.Context, v session.Validated) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, v)
}

// SessionFrom returns the validated session stored by the middleware, if any.
func SessionFrom(ctx context.Context) (session.Validated, bool) {
	v, ok := ctx.Value(sessionCtxKey{}).(session.Validated)
	return v, ok
}
