package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-anon-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenClaims(t *testing.T) {
	userID := uuid.New()
	recordID := uuid.New()
	issued := time.Now().Truncate(time.Second)
	expires := issued.Add(time.Hour)

	claims := &auth.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        recordID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Kind:        auth.TokenKindRefresh,
		IsAnonymous: true,
	}

	assert.Equal(t, userID.String(), claims.Subject())

	gotUser, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	gotRecord, err := claims.RecordID()
	require.NoError(t, err)
	assert.Equal(t, recordID, gotRecord)

	assert.Equal(t, expires, claims.Expires())
	assert.Equal(t, issued, claims.Issued())
}

func TestTokenClaims_ZeroValues(t *testing.T) {
	claims := &auth.TokenClaims{}

	_, err := claims.UserID()
	assert.Error(t, err)

	_, err = claims.RecordID()
	assert.Error(t, err)

	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.Issued().IsZero())
}
