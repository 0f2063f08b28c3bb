package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrNoCredential    = errors.New("no bank connection available")
	ErrSessionNotFound = errors.New("session not found")
)

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	HasBankConnection bool      `json:"hasBankConnection"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
}

// NormalizeEmail lower-cases and trims an address and rejects malformed ones.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Session binds a bearer token (stored only as its hash) to a user until
// ExpiresAt. Logging out deletes the row.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type CreateSessionParams struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}
