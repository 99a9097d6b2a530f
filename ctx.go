package auth

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the Identity in the given context
func WithContext(r context.Context, identity Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// FromContext finds the identity from the context.
func FromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the TokenClaims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the TokenClaims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok
}
