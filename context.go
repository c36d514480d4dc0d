package adminauth

import "context"

type identityContextKey struct{}

// ContextWithIdentity attaches a verified identity to the request context.
// Only transport middleware should call this; core operations take the
// identity as an explicit argument.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity stored by middleware, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok
}
