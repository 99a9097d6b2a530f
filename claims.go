package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates the tokens this package issues.
type TokenKind string

const (
	// TokenKindSession is the short-lived access token verified statelessly.
	TokenKindSession TokenKind = "session"
	// TokenKindRefresh is the single-use token bound to a RefreshToken record.
	TokenKindRefresh TokenKind = "refresh"
	// TokenKindEmailSignIn is the throwaway token embedded in sign-in emails.
	TokenKindEmailSignIn TokenKind = "email-signin"
)

// TokenClaims is the claim set carried by every token this package signs.
// Refresh tokens additionally use the registered ID claim (jti) to point at
// their backing RefreshToken record.
type TokenClaims struct {
	jwt.RegisteredClaims
	Kind        TokenKind      `json:"kind,omitempty"`
	IsAnonymous bool           `json:"is_anonymous,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Subject returns the subject claim, the owning user id.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID parses the subject claim as a UUID.
func (c *TokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// RecordID parses the token id claim as the backing refresh record id.
func (c *TokenClaims) RecordID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.ID)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
