package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

const migrationTable = "schema_migrations"

// Dialect captures the SQL differences the migrator cares about
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
}

var (
	Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}
	SQLite   = Dialect{Name: "sqlite", Placeholder: func(int) string { return "?" }}
)

// ApplyMigrations executes the *.sql files of migrationFS in name order, each at most once.
// Only the section after "-- +migrate Up" runs when the marker is present.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationFS fs.FS, dialect Dialect) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT 1 FROM %s WHERE name = %s", migrationTable, dialect.Placeholder(1))
	insertSQL := fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (%s, %s) ON CONFLICT DO NOTHING",
		migrationTable, dialect.Placeholder(1), dialect.Placeholder(2))

	for _, file := range files {
		var found int
		err := db.QueryRowContext(ctx, selectSQL, file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := ExtractUpMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, insertSQL, file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
