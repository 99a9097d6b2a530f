package auth

// ClaimsDecorator can mutate allowed claim extensions before a token is
// signed. Implementations may only touch extension fields (e.g. Metadata) and
// must leave registered/identity claims untouched so core auth semantics stay
// stable.
type ClaimsDecorator interface {
	Decorate(identity Identity, claims *TokenClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(identity Identity, claims *TokenClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(identity Identity, claims *TokenClaims) error {
	if f == nil {
		return nil
	}
	return f(identity, claims)
}
