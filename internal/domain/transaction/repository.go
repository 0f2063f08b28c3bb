package transaction

import "context"

// Repository defines the interface for transaction data access
type Repository interface {
	// ExternalIDsByAccount returns the set of provider IDs already stored for an account
	ExternalIDsByAccount(ctx context.Context, accountID string) (map[string]struct{}, error)

	// CreateBatch inserts rows in one call, silently skipping any whose
	// (account ID, external ID) already exists. Returns the number inserted.
	CreateBatch(ctx context.Context, params []CreateParams) (int, error)

	// ListByUserID returns a user's transactions across accounts, newest first
	ListByUserID(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}
