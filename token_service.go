package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SecretResolver maps a token subject to the secret its tokens are signed
// with. Implementations consult the user directory so identities carrying
// their own signing secret verify against it instead of the global key.
type SecretResolver func(ctx context.Context, subject string) ([]byte, error)

// TokenService signs and verifies the tokens managed by this package
type TokenService interface {
	AccessToken(identity Identity) (string, time.Time, error)
	RefreshToken(identity Identity, recordID uuid.UUID) (string, time.Time, error)
	EmailSignInToken(identity Identity) (string, time.Time, error)
	SignClaims(claims *TokenClaims, secret []byte) (string, error)
	Verify(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	resolver   SecretResolver
	decorators []ClaimsDecorator
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		accessTTL:  cfg.GetAccessTokenExpiration(),
		refreshTTL: cfg.GetRefreshTokenExpiration(),
		emailTTL:   cfg.GetEmailTokenExpiration(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithSecretResolver configures per-identity secret resolution for Verify.
func (ts *TokenServiceImpl) WithSecretResolver(resolver SecretResolver) *TokenServiceImpl {
	ts.resolver = resolver
	return ts
}

// WithClaimsDecorator registers a decorator invoked on every claim set
// before it is signed.
func (ts *TokenServiceImpl) WithClaimsDecorator(decorators ...ClaimsDecorator) *TokenServiceImpl {
	for _, d := range decorators {
		if d != nil {
			ts.decorators = append(ts.decorators, d)
		}
	}
	return ts
}

// WithClock overrides the time source, mainly for tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// AccessToken issues a stateless session token for the identity.
func (ts *TokenServiceImpl) AccessToken(identity Identity) (string, time.Time, error) {
	claims := ts.newClaims(identity, TokenKindSession, ts.accessTTL)
	if err := ts.decorate(identity, claims); err != nil {
		return "", time.Time{}, err
	}
	token, err := ts.SignClaims(claims, ts.secretFor(identity))
	return token, claims.Expires(), err
}

// RefreshToken issues a single-use refresh token bound to the given record.
func (ts *TokenServiceImpl) RefreshToken(identity Identity, recordID uuid.UUID) (string, time.Time, error) {
	claims := ts.newClaims(identity, TokenKindRefresh, ts.refreshTTL)
	claims.RegisteredClaims.ID = recordID.String()
	if err := ts.decorate(identity, claims); err != nil {
		return "", time.Time{}, err
	}
	token, err := ts.SignClaims(claims, ts.secretFor(identity))
	return token, claims.Expires(), err
}

// EmailSignInToken issues the short-lived token used by email sign-in links.
func (ts *TokenServiceImpl) EmailSignInToken(identity Identity) (string, time.Time, error) {
	claims := ts.newClaims(identity, TokenKindEmailSignIn, ts.emailTTL)
	if err := ts.decorate(identity, claims); err != nil {
		return "", time.Time{}, err
	}
	token, err := ts.SignClaims(claims, ts.secretFor(identity))
	return token, claims.Expires(), err
}

// decorate runs the registered decorators, restoring the protected claims
// afterwards so decorators can only contribute extension fields.
func (ts *TokenServiceImpl) decorate(identity Identity, claims *TokenClaims) error {
	if len(ts.decorators) == 0 {
		return nil
	}

	protected := claims.RegisteredClaims
	kind := claims.Kind
	isAnonymous := claims.IsAnonymous

	for _, d := range ts.decorators {
		if err := d.Decorate(identity, claims); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "claims decorator failed")
		}
	}

	claims.RegisteredClaims = protected
	claims.Kind = kind
	claims.IsAnonymous = isAnonymous

	return nil
}

// SignClaims signs the claim set with HS256. An empty secret falls back to
// the global signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims, secret []byte) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if len(secret) == 0 {
		secret = ts.signingKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// Validation covers signature and expiry only; it has no knowledge of the
// refresh token store.
func (ts *TokenServiceImpl) Verify(ctx context.Context, tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		claims, ok := t.Claims.(*TokenClaims)
		if !ok {
			return nil, ErrTokenMalformed
		}
		return ts.resolveSecret(ctx, claims.RegisteredClaims.Subject)
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode != "" {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService verify could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenServiceImpl) resolveSecret(ctx context.Context, subject string) ([]byte, error) {
	if ts.resolver == nil {
		return ts.signingKey, nil
	}

	secret, err := ts.resolver(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return ts.signingKey, nil
	}
	return secret, nil
}

func (ts *TokenServiceImpl) secretFor(identity Identity) []byte {
	if identity == nil {
		return ts.signingKey
	}
	if secret := identity.SigningSecret(); secret != "" {
		return []byte(secret)
	}
	return ts.signingKey
}

func (ts *TokenServiceImpl) newClaims(identity Identity, kind TokenKind, ttl time.Duration) *TokenClaims {
	now := ts.now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind:        kind,
		IsAnonymous: identity.IsAnonymous(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

var _ TokenService = (*TokenServiceImpl)(nil)
