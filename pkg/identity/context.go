package identity

import "context"

type identityCtxKey struct{}

// SetToContext stores the verified identity in the request context.
func SetToContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// FromContext retrieves the verified identity from the request context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}
