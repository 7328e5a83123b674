package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/storetest"
)

// Runs against a disposable database named by HIREBRIDGE_TEST_POSTGRES_DSN.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("HIREBRIDGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HIREBRIDGE_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) domain.Store {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		store := NewPostgresStore(db, nil)
		ctx := context.Background()
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, err := db.ExecContext(ctx, `TRUNCATE introduction_requests, principal_profiles, professionals, companies`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
