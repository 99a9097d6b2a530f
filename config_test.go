package auth_test

import (
	"os"
	"testing"
	"time"

	auth "github.com/goliatone/go-anon-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("reads the environment", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "super-secret")
		t.Setenv("JWT_ISSUER", "issuer-under-test")
		t.Setenv("JWT_AUDIENCE", "web,mobile")
		t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "10m")
		t.Setenv("REFRESH_TOKEN_EXPIRES_IN", "30d")
		t.Setenv("COOKIE_DOMAIN", "example.com")
		t.Setenv("COOKIE_SECURE", "false")

		cfg, err := auth.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "super-secret", cfg.GetSigningKey())
		assert.Equal(t, "issuer-under-test", cfg.GetIssuer())
		assert.Equal(t, []string{"web", "mobile"}, cfg.GetAudience())
		assert.Equal(t, 10*time.Minute, cfg.GetAccessTokenExpiration())
		assert.Equal(t, 30*24*time.Hour, cfg.GetRefreshTokenExpiration())
		assert.Equal(t, "example.com", cfg.GetCookieDomain())
		assert.False(t, cfg.GetCookieSecure())
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "super-secret")

		cfg, err := auth.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 15*time.Minute, cfg.GetAccessTokenExpiration())
		assert.Equal(t, 30*24*time.Hour, cfg.GetRefreshTokenExpiration())
		assert.Equal(t, 5*time.Minute, cfg.GetEmailTokenExpiration())
		assert.Equal(t, "access_token", cfg.GetAccessTokenName())
		assert.Equal(t, "refresh_token", cfg.GetRefreshTokenName())
		assert.Equal(t, "/", cfg.GetCookiePath())
		assert.Equal(t, "Lax", cfg.GetCookieSameSite())
	})

	t.Run("missing signing key", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "placeholder")
		os.Unsetenv("JWT_SECRET")

		_, err := auth.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("invalid expiry", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "super-secret")
		t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "bogus")

		_, err := auth.LoadConfig()
		assert.Error(t, err)
	})
}
