package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// PostgresProfileRepository implements domain.ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProfileRepository creates a new profile repository
func NewPostgresProfileRepository(db *sql.DB, logger *slog.Logger) *PostgresProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileRepository{db: db, logger: logger}
}

// SaveProfessional inserts or replaces a professional
func (r *PostgresProfileRepository) SaveProfessional(ctx context.Context, p *domain.Professional) error {
	query := `
		INSERT INTO professionals (id, display_name, verified)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, verified = EXCLUDED.verified
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.ID, p.DisplayName, p.Verified).Scan(&p.CreatedAt); err != nil {
		r.logger.Error("failed to save professional",
			slog.String("professional_id", p.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to save professional: %w", err)
	}
	return nil
}

// FindProfessional retrieves a professional by ID
func (r *PostgresProfileRepository) FindProfessional(ctx context.Context, id string) (*domain.Professional, error) {
	p := &domain.Professional{}
	query := `
		SELECT id, display_name, verified, created_at
		FROM professionals
		WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.DisplayName, &p.Verified, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("professional %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return p, nil
}

// GetActiveRole returns the persisted active role of a principal
func (r *PostgresProfileRepository) GetActiveRole(ctx context.Context, principalID string) (domain.Role, bool, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT active_role FROM principal_profiles WHERE principal_id = $1`, principalID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get active role: %w", err)
	}
	return domain.Role(role), true, nil
}

// SaveActiveRole upserts the active role of a principal
func (r *PostgresProfileRepository) SaveActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	query := `
		INSERT INTO principal_profiles (principal_id, active_role)
		VALUES ($1, $2)
		ON CONFLICT (principal_id) DO UPDATE SET active_role = EXCLUDED.active_role, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, principalID, string(role)); err != nil {
		return fmt.Errorf("failed to save active role: %w", err)
	}
	return nil
}
