package db

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID keys the advisory lock held while a migration file runs.
const migrationLockID = 7340021

type Migration struct {
	Version string
	Applied bool
}

// Migrate applies every not yet recorded *.sql file in name order, one
// transaction per file, and returns the versions it applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) ([]string, error) {
	return MigrateFS(ctx, pool, os.DirFS(migrationsDir))
}

func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, err
	}

	status, err := Status(ctx, pool, fsys)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range status {
		if m.Applied {
			continue
		}
		sqlBytes, err := fs.ReadFile(fsys, m.Version+".sql")
		if err != nil {
			return applied, err
		}
		ok, err := applyMigration(ctx, pool, m.Version, string(sqlBytes))
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

// Status lists the migration files with whether each is recorded as applied.
func Status(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]Migration, error) {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, err
	}
	versions, err := migrationVersions(fsys)
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(versions))
	for _, version := range versions {
		applied, err := migrationApplied(ctx, pool, version)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Applied: applied})
	}
	return out, nil
}

func migrationVersions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(entry.Name(), ".sql"))
	}
	sort.Strings(versions)
	return versions, nil
}

// applyMigration reports false when another process recorded the version
// while this one waited for the lock.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, version, sql string) (bool, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return false, err
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("migration %s failed: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())")
	return err
}

func migrationApplied(ctx context.Context, pool *pgxpool.Pool, version string) (bool, error) {
	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
