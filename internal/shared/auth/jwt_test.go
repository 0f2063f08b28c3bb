package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := NewJWT("my-secret-key", 7*24*time.Hour)

	token, expiresAt, err := j.Generate("user-123", "test@example.com", "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	claims, err := j.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "session-1", claims.SessionID())
	assert.Equal(t, "test@example.com", claims.Email)
}

func TestJWT_TamperedSignature(t *testing.T) {
	j := NewJWT("my-secret-key", time.Hour)
	token, _, err := j.Generate("user-123", "test@example.com", "session-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".invalid-signature"

	_, err = j.Validate(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	token, _, err := NewJWT("secret-a", time.Hour).Generate("u", "e@example.com", "s")
	require.NoError(t, err)

	_, err = NewJWT("secret-b", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWT("my-secret-key", time.Hour)
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := j.Generate("user-123", "expired@example.com", "session-1")
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ID:        "session-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("my-secret-key"))
	require.NoError(t, err)

	_, err = NewJWT("my-secret-key", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_InvalidFormat(t *testing.T) {
	_, err := NewJWT("my-secret-key", time.Hour).Validate("invalid.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token-a"))
	assert.NotEqual(t, a, HashToken("token-b"))
}
