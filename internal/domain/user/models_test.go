package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Jane.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", got)

	for _, bad := range []string{"", "not-an-email", "Jane <jane@example.com>", "@example.com"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
	assert.True(t, s.Expired(now.Add(time.Hour)))
}
