package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/repository/migrations"
	"github.com/aryan0dhankhar/hirebridge/pkg/database"
)

// PostgresStore implements domain.Store on PostgreSQL
type PostgresStore struct {
	*PostgresCompanyRepository
	*PostgresIntroductionRepository
	*PostgresProfileRepository
	*PostgresReferenceRepository

	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates the PostgreSQL store over an open connection pool
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		PostgresCompanyRepository:      NewPostgresCompanyRepository(db, logger),
		PostgresIntroductionRepository: NewPostgresIntroductionRepository(db, logger),
		PostgresProfileRepository:      NewPostgresProfileRepository(db, logger),
		PostgresReferenceRepository:    NewPostgresReferenceRepository(db, logger),
		db:                             db,
		logger:                         logger,
	}
}

// Migrate applies the embedded schema
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := database.ApplyMigrations(ctx, s.db, migrations.FS, database.Postgres); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// rollback ends tx after a failed step, keeping the original error
func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

func nullTime(t *sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
