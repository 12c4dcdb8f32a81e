package auth

import "context"

type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext returns the principal installed by the request gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || principal == nil {
		return Principal{}, false
	}
	return *principal, true
}

func clearPrincipal(ctx context.Context) context.Context {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, (*Principal)(nil))
}
