package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"solana-token-audit/internal/storage/postgres"
)

// versionTable records which migrations have been applied.
const versionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT        PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// migrationLock is the advisory lock key held while migrating, so replicas
// starting together apply each file once.
const migrationLock int64 = 0x61756469745f6d67

// Migration is one embedded schema change.
type Migration struct {
	Version string // file name without .sql
	SQL     string
}

// PostgresMigrations returns the embedded migrations ordered by version.
// Blank files are skipped.
func PostgresMigrations() ([]Migration, error) {
	paths, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list embedded postgres migrations: %w", err)
	}
	sort.Strings(paths)

	migrations := make([]Migration, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(PostgresFS, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(path.Base(p), ".sql"),
			SQL:     sql,
		})
	}
	return migrations, nil
}

// RunPostgresMigrations applies pending migrations in one transaction and
// records them in schema_migrations. Already applied versions are skipped.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	migrations, err := PostgresMigrations()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLock); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	if _, err := tx.Exec(ctx, versionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, tx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, tx pgx.Tx) (map[string]bool, error) {
	rows, err := tx.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}
