package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService(t *testing.T) {
	svc := NewJWTService()

	t.Run("mint and validate internal token", func(t *testing.T) {
		token, expiresAt, err := svc.MintInternalToken("worker-1", "u1", "human", "a1")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(internalTokenExp), expiresAt, time.Minute)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, claims.HasScope(ScopeInternal))
		assert.Equal(t, "u1", claims.ClientUserID)
		assert.Equal(t, "human", claims.ActorType)
		assert.Equal(t, "a1", claims.ActorID)
		assert.Equal(t, "worker-1", claims.Subject)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid.token.here")
		assert.Error(t, err)

		_, err = svc.ValidateToken("")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		originalExp := internalTokenExp
		defer SetInternalTokenExpiration(originalExp)
		SetInternalTokenExpiration(-1 * time.Hour)

		token, _, err := svc.MintInternalToken("worker-1", "u1", "human", "a1")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		originalSecret := jwtSecretKey
		defer func() { jwtSecretKey = originalSecret }()

		token, _, err := svc.MintInternalToken("worker-1", "u1", "human", "a1")
		require.NoError(t, err)

		SetJWTSecretKey("a-different-secret")
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestHasScope(t *testing.T) {
	claims := &Claims{Scopes: []string{ScopeInternal, "other"}}
	assert.True(t, claims.HasScope(ScopeInternal))
	assert.False(t, claims.HasScope("missing"))
}
