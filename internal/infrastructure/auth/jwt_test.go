package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/syncengine/internal/infrastructure/config"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars",
		Issuer:     "syncengine",
		Expiration: 15 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	_, err := NewJWTService(config.JWTConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)

	svc, err := NewJWTService(config.JWTConfig{Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.Expiration())
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.GenerateToken("ops@example.com", []string{ScopeWrite}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "syncengine", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasScope(ScopeWrite))
	assert.True(t, claims.HasScope(ScopeRead))
	assert.Equal(t, token.ExpiresAt.Unix(), claims.GetExpiresAtTime().Unix())
}

func TestGenerateToken_RequiresSubject(t *testing.T) {
	_, err := newTestJWTService(t).GenerateToken("", nil, 0)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestClaims_HasScope(t *testing.T) {
	read := &Claims{Scopes: []string{ScopeRead}}
	assert.True(t, read.HasScope(ScopeRead))
	assert.False(t, read.HasScope(ScopeWrite))

	none := &Claims{}
	assert.False(t, none.HasScope(ScopeRead))
	assert.True(t, none.GetExpiresAtTime().IsZero())
}

func TestValidateToken_Errors(t *testing.T) {
	svc := newTestJWTService(t)

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		svc.now = func() time.Time { return past }
		token, err := svc.GenerateToken("ops", []string{ScopeRead}, time.Minute)
		svc.now = time.Now
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		svc.now = func() time.Time { return future }
		token, err := svc.GenerateToken("ops", []string{ScopeRead}, time.Hour)
		svc.now = time.Now
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTService(config.JWTConfig{Secret: "another-secret", Issuer: "syncengine"})
		require.NoError(t, err)
		token, err := other.GenerateToken("ops", nil, 0)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
		require.NoError(t, err)
		token, err := other.GenerateToken("ops", nil, 0)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", Issuer: "syncengine"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "syncengine",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}).SignedString([]byte("test-secret-key-at-least-32-chars"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
