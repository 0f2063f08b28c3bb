package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/crypto"
)

const userColumns = `id, email, password_hash, provider_credential IS NOT NULL, created_at`

// UserRepository stores users and, encrypted, their provider credential.
type UserRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
	logger    logrus.FieldLogger
}

var (
	_ user.Repository      = (*UserRepository)(nil)
	_ user.CredentialStore = (*UserRepository)(nil)
)

func NewUserRepository(db *DB, encryptor *crypto.Encryptor, logger logrus.FieldLogger) *UserRepository {
	return &UserRepository{db: db, encryptor: encryptor, logger: logger}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, uuid.NewString(), params.Email, params.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// ListWithCredential returns users that have a stored provider credential.
func (r *UserRepository) ListWithCredential(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_credential IS NOT NULL ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SetProviderCredential encrypts and stores the credential, replacing any previous one.
func (r *UserRepository) SetProviderCredential(ctx context.Context, userID, credential string) error {
	encrypted, err := r.encryptor.Encrypt(credential)
	if err != nil {
		return fmt.Errorf("failed to encrypt provider credential: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE users SET provider_credential = $2 WHERE id = $1`, userID, nullString(encrypted))
	if err != nil {
		return fmt.Errorf("failed to store provider credential: %w", err)
	}
	return expectOneRow(res, user.ErrUserNotFound)
}

// GetProviderCredential returns the decrypted credential. A value that no
// longer decrypts (rotated key, tampering) is reported as user.ErrNoCredential.
func (r *UserRepository) GetProviderCredential(ctx context.Context, userID string) (string, error) {
	var encrypted sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT provider_credential FROM users WHERE id = $1`, userID).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", user.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load provider credential: %w", err)
	}
	if !encrypted.Valid || encrypted.String == "" {
		return "", user.ErrNoCredential
	}

	credential, err := r.encryptor.Decrypt(encrypted.String)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryption) {
			r.logger.WithError(err).WithField("user_id", userID).Warn("Stored provider credential could not be decrypted")
			return "", user.ErrNoCredential
		}
		return "", err
	}
	return credential, nil
}

func (r *UserRepository) ClearProviderCredential(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET provider_credential = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear provider credential: %w", err)
	}
	return expectOneRow(res, user.ErrUserNotFound)
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.HasBankConnection, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
