package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-anon-auth"
	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Live(t *testing.T) {
	now := time.Now()

	live := &auth.RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Live(now))

	revoked := &auth.RefreshToken{ExpiresAt: now.Add(time.Hour), IsRevoked: true}
	assert.False(t, revoked.Live(now))

	expired := &auth.RefreshToken{ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, expired.Live(now))

	var missing *auth.RefreshToken
	assert.False(t, missing.Live(now))
}
