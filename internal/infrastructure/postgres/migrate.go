package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending embedded migration.
func Migrate(db *DB, logger logrus.FieldLogger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"preMigrationVersion":  before,
		"postMigrationVersion": after,
		"dirty":                dirty,
	}).Info("Migration status")
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(db *DB, steps int, logger logrus.FieldLogger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	logger.WithField("steps", steps).Info("Migrations rolled back")
	return nil
}

func newMigrator(db *DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
