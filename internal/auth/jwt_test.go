package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	token, err := m.GenerateAccessToken("user-123", "shopper@example.com", "customer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "shopper@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken("user-123", "shopper@example.com", "customer")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 15*time.Minute)
	validator := NewJWTManager("secret-b", 15*time.Minute)

	token, err := issuer.GenerateAccessToken("user-123", "shopper@example.com", "customer")
	require.NoError(t, err)

	_, err = validator.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsUnsignedToken(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-123"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_MalformedToken(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	_, err := m.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)
}
