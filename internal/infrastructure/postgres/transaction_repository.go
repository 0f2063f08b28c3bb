package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"truebalance/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

var _ transaction.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ExternalIDsByAccount returns the provider IDs already stored for an account.
func (r *TransactionRepository) ExternalIDsByAccount(ctx context.Context, accountID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT external_id FROM transactions WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction ids: %w", err)
	}
	return ids, nil
}

// CreateBatch inserts all rows in one transaction. Rows whose (account_id,
// external_id) already exist are skipped by the conflict clause, so the
// returned count is what was actually written.
func (r *TransactionRepository) CreateBatch(ctx context.Context, params []transaction.CreateParams) (int, error) {
	if len(params) == 0 {
		return 0, nil
	}
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("%w: row %d: %v", transaction.ErrInvalidInput, i, err)
		}
	}

	query := `
		INSERT INTO transactions (id, account_id, external_id, amount, description, category, date, type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, external_id) DO NOTHING
	`

	inserted := 0
	err := r.db.WithTx(ctx, "INSERT transactions batch", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range params {
			status := p.Status
			if status == "" {
				status = transaction.StatusPosted
			}

			res, err := stmt.ExecContext(ctx,
				uuid.NewString(), p.AccountID, p.ExternalID, p.Amount.Round(2), p.Description,
				categoryValue(p.Category), p.Date, string(p.Type), string(status),
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", p.ExternalID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListByUserID returns a user's transactions across accounts, newest first.
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.external_id, t.amount, t.description, t.category,
		       t.date, t.type, t.status, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1
		ORDER BY t.date DESC, t.created_at DESC, t.id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []*transaction.Transaction{}
	for rows.Next() {
		var t transaction.Transaction
		var category sql.NullString
		var kind, status string

		err := rows.Scan(
			&t.ID, &t.AccountID, &t.ExternalID, &t.Amount, &t.Description, &category,
			&t.Date, &kind, &status, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.Type = transaction.Type(kind)
		t.Status = transaction.Status(status)
		if category.Valid {
			c := transaction.Category(category.String)
			t.Category = &c
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func categoryValue(c *transaction.Category) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return nullString(string(*c))
}
