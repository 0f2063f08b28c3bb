package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// Create inserts a new account. Returns ErrDuplicateAccount when the
	// user already has an account with the same external ID.
	Create(ctx context.Context, params CreateParams) (*Account, error)

	// GetByID retrieves an account by its internal ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByExternalID retrieves a user's account by the provider's ID
	GetByExternalID(ctx context.Context, userID, externalID string) (*Account, error)

	// ListByUserID retrieves all accounts for a specific user
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)

	// UpdateSyncState overwrites balance, active flag and last sync time
	UpdateSyncState(ctx context.Context, id string, update SyncUpdate) (*Account, error)
}
