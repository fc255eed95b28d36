package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/codequest/leaderboard/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`
	selectAppliedMigrationsSQL = `SELECT name FROM schema_migrations`
	recordMigrationSQL         = `INSERT INTO schema_migrations (name) VALUES ($1)`
)

// Migrate applies the embedded schema migrations that have not run yet.
// Each migration runs in its own transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.migrate(ctx, migrationFiles)
}

func (s *PostgresStore) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.Exec(ctx, createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", classify("migrate", err))
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, path := range names {
		name := strings.TrimPrefix(path, "migrations/")
		if applied[name] {
			s.logger.Debug(ctx, "migration already applied", logger.String("migration", name))
			continue
		}

		s.logger.Info(ctx, "applying migration", logger.String("migration", name))

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", name, classify("migrate", err))
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", name, classify("migrate", err))
		}

		if _, err := tx.Exec(ctx, recordMigrationSQL, name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", name, classify("migrate", err))
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, classify("migrate", err))
		}

		s.logger.Info(ctx, "migration applied", logger.String("migration", name))
	}

	return nil
}

func (s *PostgresStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, selectAppliedMigrationsSQL)
	if err != nil {
		return nil, classify("migrate", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("migrate", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
