package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AuthContext is what the HTTP layer attaches to a request before any
// handler runs. A request with no usable token still gets a context; only a
// structurally broken Authorization header is an error.
type AuthContext struct {
	Identity  Identity
	Claims    *TokenClaims
	IsExpired bool
}

// Authenticated reports whether a verified session identity is attached.
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.Identity != nil
}

// Guard resolves the optional identity for inbound requests: bearer header
// first, access cookie second. It never rejects a request for missing or
// stale credentials; it only describes what it found.
type Guard struct {
	tokenService TokenService
	users        Users
	cfg          Config
	logger       Logger
}

// NewGuard creates a request guard over the token service and user store.
func NewGuard(tokenService TokenService, users Users, cfg Config) *Guard {
	return &Guard{
		tokenService: tokenService,
		users:        users,
		cfg:          cfg,
		logger:       defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate inspects the Authorization header and cookies and returns the
// request's AuthContext.
func (g *Guard) Authenticate(ctx context.Context, authorization string, cookies map[string]string) (*AuthContext, error) {
	result := &AuthContext{}

	token, err := g.resolveToken(authorization, cookies)
	if err != nil {
		return nil, err
	}

	refreshToken := cookies[g.cfg.GetRefreshTokenName()]
	if token == "" {
		// a lone refresh cookie means the session expired and the client
		// should rotate before retrying
		result.IsExpired = refreshToken != ""
		return result, nil
	}

	claims, err := g.tokenService.Verify(ctx, token)
	if err != nil {
		if IsTokenExpiredError(err) {
			result.IsExpired = true
		}
		return result, nil
	}

	if claims.Kind != TokenKindSession {
		result.IsExpired = true
		return result, nil
	}

	userID, err := claims.UserID()
	if err != nil {
		return result, nil
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			g.logger.Error("Guard failed to load user", "error", err)
		}
		return result, nil
	}

	result.Claims = claims
	result.Identity = IdentityFromUser(user)

	return result, nil
}

func (g *Guard) resolveToken(authorization string, cookies map[string]string) (string, error) {
	if authorization == "" {
		return cookies[g.cfg.GetAccessTokenName()], nil
	}

	parts := strings.Fields(authorization)
	if len(parts) != 2 {
		return "", goerrors.New(`bad Authorization header format, expected "Bearer <token>"`, goerrors.CategoryAuth).
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", nil
	}

	return parts[1], nil
}
