// Package migrations embeds the SQL schema and applies it to a database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.up.sql
var files embed.FS

// Versions returns the names of the embedded migrations in apply order.
func Versions() ([]string, error) {
	entries, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	versions := make([]string, len(entries))
	for i, name := range entries {
		versions[i] = strings.TrimSuffix(name, ".up.sql")
	}
	return versions, nil
}

// Apply runs every embedded migration that has not been recorded in the
// schema_migrations table. Each migration runs in its own transaction. It
// returns the versions that were applied.
func Apply(ctx context.Context, db *sql.DB) ([]string, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version text PRIMARY KEY,
			applied_at timestamp(0) with time zone NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	versions, err := Versions()
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, version := range versions {
		ok, err := apply(ctx, db, version)
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", version, err)
		}
		if ok {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, version string) (bool, error) {
	body, err := files.ReadFile(version + ".up.sql")
	if err != nil {
		return false, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	// Serialise concurrent starters on the same database.
	_, err = tx.ExecContext(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`)
	if err != nil {
		return false, err
	}
	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = tx.ExecContext(ctx, string(body))
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}
