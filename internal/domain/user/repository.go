package user

import (
	"context"
	"time"
)

// Repository defines the interface for user data access
type Repository interface {
	// Create returns ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// ListWithCredential returns users that have a stored provider credential.
	ListWithCredential(ctx context.Context) ([]*User, error)
}

// CredentialStore keeps each user's provider access credential encrypted at rest.
type CredentialStore interface {
	SetProviderCredential(ctx context.Context, userID, credential string) error
	// GetProviderCredential returns ErrNoCredential when nothing is stored or
	// the stored value can no longer be decrypted.
	GetProviderCredential(ctx context.Context, userID string) (string, error)
	ClearProviderCredential(ctx context.Context, userID string) error
}

type SessionRepository interface {
	Create(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteExpired removes sessions that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
