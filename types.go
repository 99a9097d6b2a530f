package auth

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	IsAnonymous() bool
	// SigningSecret returns the per-identity signing secret, or an empty
	// string when the identity uses the process-wide secret.
	SigningSecret() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenExpiration() time.Duration
	GetRefreshTokenExpiration() time.Duration
	GetEmailTokenExpiration() time.Duration
	GetAccessTokenName() string
	GetRefreshTokenName() string
	GetCookiePath() string
	GetCookieDomain() string
	GetCookieSameSite() string
	GetCookieSecure() bool
}

// AnonymousInput is the payload for anonymous sign-in. Username is optional;
// when it matches an existing user no new account is provisioned.
type AnonymousInput struct {
	Username string `json:"username,omitempty"`
}

// RefreshInput is the payload for token rotation.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type authIdentity struct {
	id          string
	username    string
	isAnonymous bool
	secret      string
}

func (a authIdentity) ID() string            { return a.id }
func (a authIdentity) Username() string      { return a.username }
func (a authIdentity) IsAnonymous() bool     { return a.isAnonymous }
func (a authIdentity) SigningSecret() string { return a.secret }

var _ Identity = authIdentity{}

// IdentityFromUser adapts a stored user record to the Identity interface.
func IdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return authIdentity{
		id:          user.ID.String(),
		username:    user.Username,
		isAnonymous: user.IsAnonymous,
		secret:      user.JWTSecret,
	}
}
