package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"truebalance/internal/domain/user"
)

type SessionRepository struct {
	db *DB
}

var _ user.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session. An empty params.ID gets a fresh UUID.
func (r *SessionRepository) Create(ctx context.Context, params user.CreateSessionParams) (*user.Session, error) {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO sessions (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token_hash, expires_at, created_at
	`

	var s user.Session
	err := r.db.QueryRowContext(ctx, query, id, params.UserID, params.TokenHash, params.ExpiresAt).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*user.Session, error) {
	query := `SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = $1`

	var s user.Session
	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// DeleteByTokenHash removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the given instant.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
