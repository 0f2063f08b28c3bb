package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "my-secure-password"
	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestHashPassword_DifferentHashesForSamePassword(t *testing.T) {
	hash1, err := HashPassword("same-password")
	require.NoError(t, err)
	hash2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "hashes must be salted")
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct-password"))
	assert.Error(t, VerifyPassword(hash, "wrong-password"))
	assert.Error(t, VerifyPassword(hash, ""))
}
