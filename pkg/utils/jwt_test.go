package utils

import (
	"testing"
	"time"

	"healthhive/internal/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef"

	token, expireAt, err := GenerateToken("user-1", "doctor", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, expireAt)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef"

	t.Run("expired", func(t *testing.T) {
		token, _, err := GenerateToken("user-1", "user", -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("within clock skew", func(t *testing.T) {
		token, _, err := GenerateToken("user-1", "user", -10*time.Second)
		require.NoError(t, err)

		_, err = ParseToken(token)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := GenerateToken("user-1", "user", time.Hour)
		require.NoError(t, err)

		config.GlobalConfig.JWT.Secret = "another-secret-another-secret-another"
		defer func() { config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef" }()

		_, err = ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestParseTokenClaims(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	config.GlobalConfig.JWT.Secret = secret

	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	expires := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("missing expiry", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{UserID: "user-1", Role: "user"})
		_, err := ParseToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
	})

	t.Run("missing user id", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expires}})
		_, err := ParseToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidClaims)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS512, []byte(secret), Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expires}})
		_, err := ParseToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("issuer", func(t *testing.T) {
		config.GlobalConfig.JWT.Issuer = "healthhive-auth"
		defer func() { config.GlobalConfig.JWT.Issuer = "" }()

		token, _, err := GenerateToken("user-1", "user", time.Hour)
		require.NoError(t, err)
		_, err = ParseToken(token)
		assert.NoError(t, err)

		foreign := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expires, Issuer: "someone-else"}})
		_, err = ParseToken(foreign)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})
}
