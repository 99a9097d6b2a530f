package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenPair is the pair of signed token strings handed to the transport
// layer. The expiry instants are for cookie attributes; they are not part of
// the response body.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Auther orchestrates the token lifecycle: anonymous sign-in, token
// issuance, and refresh rotation with reuse detection. It keeps no mutable
// state of its own; every multi-step mutation runs inside a single store
// transaction.
type Auther struct {
	users         Users
	refreshTokens RefreshTokens
	runner        TransactionRunner
	cfg           Config
	tokenService  TokenService
	provisioner   *Provisioner
	logger        Logger
	activitySink  ActivitySink
	now           func() time.Time
}

// NewAuthenticator returns a new Auther backed by the repository manager.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	return NewAuthenticatorWithStores(repo.Users(), repo.RefreshTokens(), repo, cfg)
}

// NewAuthenticatorWithStores wires an Auther from individual collaborators,
// mainly so tests can substitute in-memory stores.
func NewAuthenticatorWithStores(users Users, refreshTokens RefreshTokens, runner TransactionRunner, cfg Config) *Auther {
	s := &Auther{
		users:         users,
		refreshTokens: refreshTokens,
		runner:        runner,
		cfg:           cfg,
		provisioner:   NewProvisioner(nil),
		logger:        defLogger{},
		activitySink:  noopActivitySink{},
		now:           time.Now,
	}

	s.tokenService = NewTokenService(cfg, s.logger).
		WithSecretResolver(s.secretResolver())

	return s
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	s.tokenService = NewTokenService(s.cfg, logger).
		WithSecretResolver(s.secretResolver())
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithAvatarGenerator overrides the avatar generator used when provisioning
// anonymous accounts.
func (s *Auther) WithAvatarGenerator(avatars AvatarGenerator) *Auther {
	s.provisioner = NewProvisioner(avatars)
	return s
}

// WithClaimsDecorator registers decorators applied to every claim set before
// it is signed.
func (s *Auther) WithClaimsDecorator(decorators ...ClaimsDecorator) *Auther {
	if impl, ok := s.tokenService.(*TokenServiceImpl); ok {
		impl.WithClaimsDecorator(decorators...)
	}
	return s
}

// WithTokenService sets a custom token service.
func (s *Auther) WithTokenService(tokenService TokenService) *Auther {
	if tokenService != nil {
		s.tokenService = tokenService
	}
	return s
}

// WithClock overrides the time source, mainly for tests.
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
		if impl, ok := s.tokenService.(*TokenServiceImpl); ok {
			impl.WithClock(now)
		}
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther.
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// SignInAnonymous signs a client in without credentials. When the supplied
// username matches an existing user, tokens are issued for that user and no
// account is provisioned; otherwise a new anonymous account is created from
// the accounts-created counter. User creation, refresh record creation, and
// provisioning all commit or roll back together.
func (s *Auther) SignInAnonymous(ctx context.Context, input AnonymousInput) (*TokenPair, error) {
	var pair *TokenPair
	var user *User

	err := s.runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		if username := strings.TrimSpace(input.Username); username != "" {
			user, err = s.users.GetByUsernameTx(ctx, tx, username)
			if err != nil && !repository.IsRecordNotFound(err) {
				return err
			}
		}

		if user == nil {
			if user, err = s.provisionAnonymousTx(ctx, tx); err != nil {
				return err
			}
		}

		record, err := s.refreshTokens.IssueTx(ctx, tx, user.ID, s.refreshExpiresAt())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh token record")
		}

		pair, err = s.issueTokens(user, record.ID)
		return err
	})

	if err != nil {
		s.logger.Error("SignInAnonymous failed", "error", err)
		s.emitAuthEvent(ctx, ActivityEventAnonymousSignInFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"username": input.Username,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventAnonymousSignInSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"username": user.Username,
	})

	return pair, nil
}

// Refresh redeems a refresh token, rotating it: the consumed record is
// revoked and a new record plus a new token pair are issued atomically.
// Presenting an already revoked record is the theft signal; every record of
// the owner is revoked, that cascade is committed, and only then does the
// call fail with a reuse-detected error.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.Verify(ctx, refreshToken)
	if err != nil {
		return nil, s.refreshFailed(ctx, "", err)
	}

	if claims.Kind != TokenKindRefresh {
		err := goerrors.New("unexpected token kind", goerrors.CategoryAuth).
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized).
			WithMetadata(map[string]any{"kind": string(claims.Kind)})
		return nil, s.refreshFailed(ctx, claims.RegisteredClaims.Subject, err)
	}

	recordID, err := claims.RecordID()
	if err != nil {
		err := goerrors.Wrap(err, ErrTokenMalformed.Category, "refresh token has no usable record id").
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
		return nil, s.refreshFailed(ctx, claims.RegisteredClaims.Subject, err)
	}

	var pair *TokenPair
	var breachOwner uuid.UUID

	err = s.runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.refreshTokens.GetByIDTx(ctx, tx, recordID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRecordNotFound
			}
			return err
		}

		user, err := s.users.GetByIDTx(ctx, tx, record.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return err
		}

		rotated, err := s.refreshTokens.ConsumeTx(ctx, tx, record.ID)
		if err != nil {
			return err
		}

		if !rotated {
			// Reuse of a revoked record. Revoke the whole family and commit;
			// the failure is surfaced only after the cascade is durable.
			if _, err := s.refreshTokens.RevokeAllForUserTx(ctx, tx, record.UserID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to cascade revoke refresh tokens")
			}
			breachOwner = record.UserID
			return nil
		}

		next, err := s.refreshTokens.IssueTx(ctx, tx, record.UserID, s.refreshExpiresAt())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh token record")
		}

		pair, err = s.issueTokens(user, next.ID)
		return err
	})

	if err != nil {
		return nil, s.refreshFailed(ctx, claims.RegisteredClaims.Subject, err)
	}

	if breachOwner != uuid.Nil {
		s.logger.Warn("refresh token reuse detected, revoked all sessions", "user_id", breachOwner.String())
		s.emitAuthEvent(ctx, ActivityEventTokenReuseDetected, ActorRef{Type: "unknown"}, breachOwner.String(), map[string]any{
			"record_id": recordID.String(),
		})
		return nil, goerrors.New(ErrTokenReuseDetected.Message, ErrTokenReuseDetected.Category).
			WithTextCode(TextCodeTokenReuseDetected).
			WithCode(goerrors.CodeUnauthorized).
			WithMetadata(map[string]any{"user_id": breachOwner.String()})
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshSuccess, ActorRef{ID: claims.RegisteredClaims.Subject, Type: "user"}, claims.RegisteredClaims.Subject, nil)

	return pair, nil
}

// RotateSecret replaces the identity's signing secret as an administrative
// recovery action, invalidating every token issued to it so far.
func (s *Auther) RotateSecret(ctx context.Context, identityID uuid.UUID) (string, error) {
	secret, err := s.users.RotateSecret(ctx, identityID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventSecretRotated, ActorRef{Type: "system"}, identityID.String(), nil)

	return secret, nil
}

func (s *Auther) provisionAnonymousTx(ctx context.Context, tx bun.Tx) (*User, error) {
	seq, err := s.users.NextAccountSeqTx(ctx, tx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to advance account counter")
	}

	profile, err := s.provisioner.Provision(ctx, seq)
	if err != nil {
		return nil, err
	}

	secret, err := NewSigningSecret()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &User{
		Username:       profile.Username,
		ProfileImage:   profile.AvatarImage,
		IsAnonymous:    true,
		JWTSecret:      secret,
		LastSignedInAt: &now,
		LastActiveAt:   &now,
	}

	if user, err = s.users.CreateTx(ctx, tx, user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create anonymous user")
	}

	return user, nil
}

func (s *Auther) issueTokens(user *User, recordID uuid.UUID) (*TokenPair, error) {
	identity := IdentityFromUser(user)

	access, accessExpiresAt, err := s.tokenService.AccessToken(identity)
	if err != nil {
		return nil, err
	}

	refresh, refreshExpiresAt, err := s.tokenService.RefreshToken(identity, recordID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// secretResolver lets Verify honor per-user signing secrets: tokens of users
// carrying their own secret never verify against the global key.
func (s *Auther) secretResolver() SecretResolver {
	return func(ctx context.Context, subject string) ([]byte, error) {
		id, err := uuid.Parse(subject)
		if err != nil {
			return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, "token subject is not a user id").
				WithTextCode(TextCodeInvalidToken).
				WithCode(goerrors.CodeUnauthorized)
		}

		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil, ErrIdentityNotFound
			}
			return nil, err
		}

		if user.JWTSecret != "" {
			return []byte(user.JWTSecret), nil
		}

		// empty selects the global signing key
		return nil, nil
	}
}

func (s *Auther) refreshExpiresAt() time.Time {
	return s.now().Add(s.cfg.GetRefreshTokenExpiration())
}

func (s *Auther) refreshFailed(ctx context.Context, subject string, err error) error {
	s.logger.Error("Refresh failed", "error", err)
	s.emitAuthEvent(ctx, ActivityEventTokenRefreshFailure, ActorRef{Type: "unknown"}, subject, map[string]any{
		"error": err.Error(),
	})
	return err
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
