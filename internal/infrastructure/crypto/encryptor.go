package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be exactly 32 bytes")
	ErrDecryption        = errors.New("credential could not be decrypted")
	ErrPlaceholderSecret = errors.New("credential encryption secret is missing or a placeholder")
)

// FallbackSecret is used outside production when no secret is configured.
const FallbackSecret = "fallback-secret"

const (
	keySalt = "teller-token"
	keySize = 32

	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

var placeholderSecrets = map[string]bool{
	"":               true,
	FallbackSecret:   true,
	"changeme":       true,
	"change-me":      true,
	"secret":         true,
	"your-secret":    true,
	"session-secret": true,
}

// IsPlaceholder reports whether secret is empty or a well-known placeholder value.
func IsPlaceholder(secret string) bool {
	return placeholderSecrets[strings.ToLower(strings.TrimSpace(secret))]
}

// DeriveKey stretches secret into an AES-256 key with scrypt.
// In production a placeholder secret is rejected; elsewhere an empty secret
// falls back to FallbackSecret.
func DeriveKey(secret string, production bool) ([]byte, error) {
	if IsPlaceholder(secret) {
		if production {
			return nil, ErrPlaceholderSecret
		}
		if secret == "" {
			secret = FallbackSecret
		}
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Encryptor seals short secrets (provider access tokens) with AES-256-GCM.
// Output is base64(nonce || ciphertext || tag) with a fresh random nonce per call.
type Encryptor struct {
	aead cipher.AEAD
}

func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromSecret derives the key from secret and builds an Encryptor.
func NewEncryptorFromSecret(secret string, production bool) (*Encryptor, error) {
	key, err := DeriveKey(secret, production)
	if err != nil {
		return nil, err
	}
	return NewEncryptor(key)
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed, truncated or tampered input
// yields ErrDecryption.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	return string(plaintext), nil
}
