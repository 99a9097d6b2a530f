package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-anon-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*auth.Guard, *auth.TokenServiceImpl, *memStore, *auth.User) {
	t.Helper()

	cfg := newTestConfig()
	store := newMemStore()
	users := newMemUsers(store)

	user := store.seedUser(&auth.User{
		Username:    "anonymous@1",
		IsAnonymous: true,
	})

	service := auth.NewTokenService(cfg, nil)
	guard := auth.NewGuard(service, users, cfg)

	return guard, service, store, user
}

func TestGuard_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("bearer header attaches the identity", func(t *testing.T) {
		guard, service, _, user := newTestGuard(t)

		token, _, err := service.AccessToken(auth.IdentityFromUser(user))
		require.NoError(t, err)

		result, err := guard.Authenticate(ctx, "Bearer "+token, nil)
		require.NoError(t, err)
		require.True(t, result.Authenticated())
		assert.Equal(t, user.ID.String(), result.Identity.ID())
		assert.False(t, result.IsExpired)
		require.NotNil(t, result.Claims)
		assert.Equal(t, auth.TokenKindSession, result.Claims.Kind)
	})

	t.Run("falls back to the access cookie", func(t *testing.T) {
		guard, service, _, user := newTestGuard(t)

		token, _, err := service.AccessToken(auth.IdentityFromUser(user))
		require.NoError(t, err)

		result, err := guard.Authenticate(ctx, "", map[string]string{
			"access_token": token,
		})
		require.NoError(t, err)
		assert.True(t, result.Authenticated())
	})

	t.Run("no credentials yields an anonymous context", func(t *testing.T) {
		guard, _, _, _ := newTestGuard(t)

		result, err := guard.Authenticate(ctx, "", nil)
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
		assert.False(t, result.IsExpired)
	})

	t.Run("lone refresh cookie flags an expired session", func(t *testing.T) {
		guard, _, _, _ := newTestGuard(t)

		result, err := guard.Authenticate(ctx, "", map[string]string{
			"refresh_token": "whatever",
		})
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
		assert.True(t, result.IsExpired)
	})

	t.Run("expired token flags the context, never errors", func(t *testing.T) {
		guard, _, _, user := newTestGuard(t)

		stale := auth.NewTokenService(newTestConfig(), nil).
			WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
		token, _, err := stale.AccessToken(auth.IdentityFromUser(user))
		require.NoError(t, err)

		result, err := guard.Authenticate(ctx, "Bearer "+token, nil)
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
		assert.True(t, result.IsExpired)
	})

	t.Run("refresh tokens do not authenticate requests", func(t *testing.T) {
		guard, service, _, user := newTestGuard(t)

		token, _, err := service.RefreshToken(auth.IdentityFromUser(user), uuid.New())
		require.NoError(t, err)

		result, err := guard.Authenticate(ctx, "Bearer "+token, nil)
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
		assert.True(t, result.IsExpired)
	})

	t.Run("deleted user yields an anonymous context", func(t *testing.T) {
		guard, service, store, user := newTestGuard(t)

		token, _, err := service.AccessToken(auth.IdentityFromUser(user))
		require.NoError(t, err)

		store.deleteUser(user.ID)

		result, err := guard.Authenticate(ctx, "Bearer "+token, nil)
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
	})

	t.Run("broken authorization header is an error", func(t *testing.T) {
		guard, _, _, _ := newTestGuard(t)

		_, err := guard.Authenticate(ctx, "Bearer", nil)
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeInvalidToken, auth.TextCode(err))
	})

	t.Run("non-bearer scheme is ignored", func(t *testing.T) {
		guard, _, _, _ := newTestGuard(t)

		result, err := guard.Authenticate(ctx, "Basic dXNlcjpwYXNz", nil)
		require.NoError(t, err)
		assert.False(t, result.Authenticated())
	})
}
