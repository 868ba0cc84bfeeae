package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Migrator handles database schema migrations
type Migrator struct {
	pool   *pgxpool.Pool
	files  fs.FS
	logger *logrus.Logger
}

// NewMigrator creates a new migration runner
//
// Parameters:
//   - pool: PostgreSQL connection pool
//   - files: filesystem holding *.sql migrations at its root (migrations.FS)
//   - logger: progress logger
//
// Returns:
//   - *Migrator: New migrator instance
func NewMigrator(pool *pgxpool.Pool, files fs.FS, logger *logrus.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		files:  files,
		logger: logger,
	}
}

// RunMigrations executes all pending database migrations
//
// This function:
//  1. Creates a migrations tracking table if it doesn't exist
//  2. Reads all migration files from the embedded filesystem
//  3. Skips migrations that have already been run
//  4. Executes new migrations in alphabetical order, each in its own transaction
//  5. Records successful migrations in the tracking table
//
// Migrations are skipped if:
//   - Filename contains "reset" (destructive operations)
//   - Migration has already been run (tracked in migrations table)
//
// Returns:
//   - int: number of migrations applied
//   - error: If any migration fails
func (m *Migrator) RunMigrations(ctx context.Context) (int, error) {
	m.logger.Info("starting database migrations")

	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	appliedMigrations, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrationFiles, err := m.migrationFiles()
	if err != nil {
		return 0, err
	}

	migrationsRun := 0
	for _, filename := range migrationFiles {
		if _, done := appliedMigrations[filename]; done {
			m.logger.WithField("file", filename).Debug("already applied")
			continue
		}

		content, err := fs.ReadFile(m.files, filename)
		if err != nil {
			return migrationsRun, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		started := time.Now()
		if err := m.apply(ctx, filename, string(content)); err != nil {
			return migrationsRun, fmt.Errorf("failed to run migration %s: %w", filename, err)
		}
		m.logger.WithFields(logrus.Fields{
			"file":     filename,
			"duration": time.Since(started).Round(time.Millisecond).String(),
		}).Info("migration applied")
		migrationsRun++
	}

	if migrationsRun > 0 {
		m.logger.Infof("successfully ran %d new migration(s)", migrationsRun)
	} else {
		m.logger.Info("schema is up to date")
	}
	return migrationsRun, nil
}

// apply runs one migration and records it atomically
func (m *Migrator) apply(ctx context.Context, filename, sql string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`,
		filename); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
//
// Schema:
//   - id: Auto-incrementing primary key
//   - filename: Migration filename (unique)
//   - applied_at: Timestamp when migration was applied
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := m.pool.Exec(ctx, query)
	return err
}

// migrationFiles lists the embedded *.sql files in apply order, skipping
// destructive reset scripts.
func (m *Migrator) migrationFiles() ([]string, error) {
	files, err := fs.Glob(m.files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	out := files[:0]
	for _, f := range files {
		if strings.Contains(f, "reset") {
			m.logger.WithField("file", f).Debug("skipping reset script")
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// getAppliedMigrations returns when each applied migration ran
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	applied := make(map[string]time.Time)

	rows, err := m.pool.Query(ctx, "SELECT filename, applied_at FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		var at *time.Time
		if err := rows.Scan(&filename, &at); err != nil {
			return nil, err
		}
		applied[filename] = time.Time{}
		if at != nil {
			applied[filename] = *at
		}
	}

	return applied, rows.Err()
}

// MigrationStatus is one embedded migration and whether it has run.
type MigrationStatus struct {
	Filename  string
	Applied   bool
	AppliedAt time.Time
}

// Status reports every embedded migration in apply order.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.createMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.migrationFiles()
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		at, ok := applied[f]
		out = append(out, MigrationStatus{Filename: f, Applied: ok, AppliedAt: at})
	}
	return out, nil
}
