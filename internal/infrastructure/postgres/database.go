package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"errors"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var dbTracer = otel.Tracer("truebalance.db")

// DB wraps *sql.DB so every statement becomes a client span.
type DB struct {
	*sql.DB
}

// New opens a pooled connection and verifies it with a ping.
func New(ctx context.Context, connStr string) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Wrap adapts an already-open handle. Used by tests.
func Wrap(db *sql.DB) *DB {
	return &DB{db}
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx runs fn inside one transaction, committing on success and rolling
// back on error. The whole unit is a single span.
func (db *DB) WithTx(ctx context.Context, name string, fn func(tx *sql.Tx) error) (err error) {
	ctx, span := dbTracer.Start(ctx, "db.Tx", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// statementSpan starts a client span tagged with the statement verb and its
// literal-free text.
func statementSpan(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return dbTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", extractSQLVerb(query)),
		attribute.String("db.statement", sanitizeQuery(query)),
	))
}

func finishSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := statementSpan(ctx, "db.Query", query)
	rows, err := db.DB.QueryContext(ctx, query, args...)
	finishSpan(span, err)
	return rows, err
}

// Row defers errors to Scan, so the span stays open until then.
type Row struct {
	row  *sql.Row
	span trace.Span
}

func (r *Row) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if r.span != nil {
		finishSpan(r.span, err)
		r.span = nil
	}
	return err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *Row {
	ctx, span := statementSpan(ctx, "db.QueryRow", query)
	return &Row{row: db.DB.QueryRowContext(ctx, query, args...), span: span}
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := statementSpan(ctx, "db.Exec", query)
	res, err := db.DB.ExecContext(ctx, query, args...)
	finishSpan(span, err)
	return res, err
}

const maxStatementLen = 256

// sanitizeQuery masks quoted and numeric literals so traces never carry
// row data. $N placeholders and digits inside identifiers are kept.
func sanitizeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))

	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'':
			b.WriteString("'?'")
			i = endOfLiteral(q, i+1)
		case isDigit(c) && (i == 0 || !isIdentChar(q[i-1])):
			b.WriteByte('?')
			for i < len(q) && (isDigit(q[i]) || q[i] == '.') {
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}

	if b.Len() > maxStatementLen {
		return b.String()[:maxStatementLen] + "..."
	}
	return b.String()
}

// endOfLiteral returns the index just past the quote closing the literal
// that starts at i. A doubled quote is an escaped quote.
func endOfLiteral(q string, i int) int {
	for i < len(q) {
		if q[i] != '\'' {
			i++
			continue
		}
		if i+1 < len(q) && q[i+1] == '\'' {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c) || c == '_' || c == '$'
}

func extractSQLVerb(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
