package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"truebalance/internal/shared/auth"
)

// ErrInvalidCredentials covers unknown email and wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the email is unknown so that a miss
// costs the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	hash, err := auth.HashPassword("truebalance-unknown-user")
	if err != nil {
		panic(err)
	}
	return hash
})

// TokenIssuer signs a bearer token bound to a session id.
type TokenIssuer interface {
	Generate(userID, email, sessionID string) (string, time.Time, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service handles registration, login and sessions.
type Service struct {
	users    Repository
	sessions SessionRepository
	tokens   TokenIssuer
	logger   logrus.FieldLogger
	verify   func(hash, password string) error
}

func NewService(users Repository, sessions SessionRepository, tokens TokenIssuer, logger logrus.FieldLogger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
		verify:   auth.VerifyPassword,
	}
}

// Register creates the user and opens their first session.
func (s *Service) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, CreateUserParams{Email: email, PasswordHash: hash})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", u.ID).Info("User registered")
	return s.openSession(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		_ = s.verify(dummyHash(), password)
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = s.verify(dummyHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.verify(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, u)
}

// Logout ends the session behind tokenHash. Unknown sessions are not an error.
func (s *Service) Logout(ctx context.Context, tokenHash string) error {
	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// PruneSessions deletes sessions that expired before now.
func (s *Service) PruneSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return n, nil
}

func (s *Service) openSession(ctx context.Context, u *User) (*AuthResult, error) {
	sessionID := uuid.NewString()

	token, expiresAt, err := s.tokens.Generate(u.ID, u.Email, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Create(ctx, CreateSessionParams{
		ID:        sessionID,
		UserID:    u.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &AuthResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
