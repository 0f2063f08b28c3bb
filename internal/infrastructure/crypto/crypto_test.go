package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T, secret string) *Encryptor {
	t.Helper()
	enc, err := NewEncryptorFromSecret(secret, false)
	require.NoError(t, err)
	return enc
}

func TestNewEncryptor_InvalidKeyLength(t *testing.T) {
	_, err := NewEncryptor([]byte("too-short"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEncryptor(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey("server-secret", true)
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := DeriveKey("server-secret", false)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "derivation must be deterministic")

	k3, err := DeriveKey("other-secret", false)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestDeriveKey_PlaceholderInProduction(t *testing.T) {
	for _, secret := range []string{"", "fallback-secret", "CHANGEME", "  secret  "} {
		t.Run(secret, func(t *testing.T) {
			_, err := DeriveKey(secret, true)
			assert.ErrorIs(t, err, ErrPlaceholderSecret)
		})
	}
}

func TestDeriveKey_EmptySecretOutsideProduction(t *testing.T) {
	empty, err := DeriveKey("", false)
	require.NoError(t, err)

	fallback, err := DeriveKey(FallbackSecret, false)
	require.NoError(t, err)

	assert.Equal(t, fallback, empty)
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	enc := newTestEncryptor(t, "server-secret")

	for _, plaintext := range []string{
		"test_token_abc123",
		"a",
		"unicode ✓ credential",
		string(make([]byte, 4096)),
	} {
		ciphertext, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := enc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptDecrypt_EmptyString(t *testing.T) {
	enc := newTestEncryptor(t, "server-secret")

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)

	plaintext, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestEncrypt_UniqueNonce(t *testing.T) {
	enc := newTestEncryptor(t, "server-secret")

	c1, err := enc.Encrypt("same text")
	require.NoError(t, err)
	c2, err := enc.Encrypt("same text")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	raw1, _ := base64.StdEncoding.DecodeString(c1)
	raw2, _ := base64.StdEncoding.DecodeString(c2)
	assert.NotEqual(t, raw1[:12], raw2[:12])
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	enc := newTestEncryptor(t, "server-secret")

	ciphertext, err := enc.Encrypt("secret data")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)

	for _, pos := range []int{0, 12, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[pos] ^= 0x01

		plaintext, err := enc.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		assert.ErrorIs(t, err, ErrDecryption)
		assert.Empty(t, plaintext)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	ciphertext, err := newTestEncryptor(t, "secret-a").Encrypt("secret data")
	require.NoError(t, err)

	_, err = newTestEncryptor(t, "secret-b").Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_InvalidBase64(t *testing.T) {
	_, err := newTestEncryptor(t, "server-secret").Decrypt("not-valid-base64!!!")
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_TooShortCiphertext(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("short"))

	_, err := newTestEncryptor(t, "server-secret").Decrypt(short)
	assert.ErrorIs(t, err, ErrDecryption)
}
