package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)

	token, err := ts.GenerateToken("u1", "ada@example.com", "admin")
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.Equal(t, "admin", claims["role"])

	t.Run("Wrong type", func(t *testing.T) {
		_, err := ts.ValidateToken(token, "refresh")
		assert.Error(t, err)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewTokenService("other-secret", time.Hour)
		_, err := other.ValidateToken(token, TokenTypeAccess)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewTokenService("test-secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := expired.GenerateToken("u1", "ada@example.com", "user")
		require.NoError(t, err)

		_, err = ts.ValidateToken(old, TokenTypeAccess)
		assert.Error(t, err)
	})

	t.Run("Unsigned token", func(t *testing.T) {
		none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "typ": TokenTypeAccess})
		raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ts.ValidateToken(raw, TokenTypeAccess)
		assert.Error(t, err)
	})
}

func TestTokenService_DefaultTTL(t *testing.T) {
	ts := NewTokenService("test-secret", 0)
	assert.Equal(t, 7*24*time.Hour, ts.ttl)
}
