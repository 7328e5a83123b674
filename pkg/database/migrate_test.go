package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	got := ExtractUpMigration(content)
	if got != "\nCREATE TABLE a (id TEXT);\n" {
		t.Fatalf("ExtractUpMigration=%q", got)
	}
	if ExtractUpMigration("SELECT 1;") != "SELECT 1;" {
		t.Fatal("expected content without markers to pass through")
	}
}

func TestApplyMigrationsRunsEachFileOnce(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"001_widgets.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE widgets (id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE widgets;\n")},
		"002_seed.sql":    {Data: []byte("INSERT INTO widgets (id) VALUES ('w-1');")},
		"README.md":       {Data: []byte("ignored")},
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(ctx, db, migrations, SQLite); err != nil {
			t.Fatalf("ApplyMigrations run %d: %v", i+1, err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM widgets").Scan(&count); err != nil {
		t.Fatalf("count widgets: %v", err)
	}
	if count != 1 {
		t.Fatalf("widgets=%d want 1", count)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("recorded migrations=%d want 2", count)
	}
}
