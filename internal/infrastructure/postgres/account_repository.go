package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"truebalance/internal/domain/account"
)

const accountColumns = `id, user_id, external_id, name, type, balance, currency, is_active, last_sync_at, created_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

var _ account.Repository = (*AccountRepository)(nil)

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. The (user_id, external_id) constraint turns a
// concurrent duplicate into account.ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO accounts (id, user_id, external_id, name, type, balance, currency, is_active, last_sync_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.UserID, params.ExternalID, params.Name, params.Type,
		params.Balance.Round(2), params.Currency, params.IsActive, nullTime(params.LastSyncAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, account.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// GetByExternalID retrieves a user's account by the provider's ID
func (r *AccountRepository) GetByExternalID(ctx context.Context, userID, externalID string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND external_id = $2`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, userID, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external id: %w", err)
	}
	return acc, nil
}

// ListByUserID retrieves all accounts for a specific user, oldest first
func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*account.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateSyncState overwrites balance, active flag and last sync time
func (r *AccountRepository) UpdateSyncState(ctx context.Context, id string, update account.SyncUpdate) (*account.Account, error) {
	query := `
		UPDATE accounts
		SET balance = $2, is_active = $3, last_sync_at = $4
		WHERE id = $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id, update.Balance.Round(2), update.IsActive, update.SyncedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return acc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	var lastSync sql.NullTime

	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.ExternalID, &acc.Name, &acc.Type,
		&acc.Balance, &acc.Currency, &acc.IsActive, &lastSync, &acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSync.Valid {
		t := lastSync.Time
		acc.LastSyncAt = &t
	}
	return &acc, nil
}
