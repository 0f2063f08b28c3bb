package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return Wrap(sqlDB), mock
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "placeholders untouched",
			query: "SELECT id FROM accounts WHERE user_id = $1 AND external_id = $2",
			want:  "SELECT id FROM accounts WHERE user_id = $1 AND external_id = $2",
		},
		{
			name:  "string literal",
			query: "SELECT id FROM users WHERE email = 'a@b.com'",
			want:  "SELECT id FROM users WHERE email = '?'",
		},
		{
			name:  "escaped quote",
			query: "SELECT 'it''s' FROM t",
			want:  "SELECT '?' FROM t",
		},
		{
			name:  "numeric literal",
			query: "SELECT * FROM transactions LIMIT 500",
			want:  "SELECT * FROM transactions LIMIT ?",
		},
		{
			name:  "decimal literal",
			query: "UPDATE accounts SET balance = 142.50",
			want:  "UPDATE accounts SET balance = ?",
		},
		{
			name:  "digits inside identifiers",
			query: "SELECT col1 FROM t2",
			want:  "SELECT col1 FROM t2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeQuery(tt.query))
		})
	}
}

func TestSanitizeQuery_Truncates(t *testing.T) {
	got := sanitizeQuery("SELECT " + strings.Repeat("x", 400))
	assert.Len(t, got, 256+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExtractSQLVerb(t *testing.T) {
	assert.Equal(t, "SELECT", extractSQLVerb("  select id from users"))
	assert.Equal(t, "INSERT", extractSQLVerb("\n\t\tINSERT INTO accounts (id) VALUES ($1)"))
	assert.Equal(t, "COMMIT", extractSQLVerb("commit"))
}

func TestWithTx_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), "test", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "DELETE FROM sessions")
		return err
	})
	assert.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	fnErr := errors.New("boom")
	err := db.WithTx(context.Background(), "test", func(tx *sql.Tx) error {
		return fnErr
	})
	assert.ErrorIs(t, err, fnErr)
}
