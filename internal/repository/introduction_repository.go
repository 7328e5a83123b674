package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

const introductionColumns = `id, company_id, professional_id, job_role_id, state, created_at, expires_at, decided_at`

// PostgresIntroductionRepository implements domain.IntroductionRepository using PostgreSQL
type PostgresIntroductionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIntroductionRepository creates a new introduction repository
func NewPostgresIntroductionRepository(db *sql.DB, logger *slog.Logger) *PostgresIntroductionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIntroductionRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntroduction(row rowScanner) (*domain.IntroductionRequest, error) {
	req := &domain.IntroductionRequest{}
	var state string
	var decided sql.NullTime
	if err := row.Scan(&req.ID, &req.CompanyID, &req.ProfessionalID, &req.JobRoleID, &state,
		&req.CreatedAt, &req.ExpiresAt, &decided); err != nil {
		return nil, err
	}
	req.State = domain.RequestState(state)
	req.CreatedAt = req.CreatedAt.UTC()
	req.ExpiresAt = req.ExpiresAt.UTC()
	req.DecidedAt = nullTime(&decided)
	return req, nil
}

// CreateIntroductionRequest reserves one credit and inserts req in the same transaction
func (r *PostgresIntroductionRepository) CreateIntroductionRequest(ctx context.Context, req *domain.IntroductionRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE companies
		SET introduction_credits = introduction_credits - 1, updated_at = now()
		WHERE id = $1 AND introduction_credits > 0
	`, req.CompanyID)
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to reserve credit: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to check rows affected: %w", err))
	}
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, req.CompanyID).Scan(&exists); err != nil {
			return rollback(tx, fmt.Errorf("failed to check company: %w", err))
		}
		if !exists {
			return rollback(tx, fmt.Errorf("company %s: %w", req.CompanyID, domain.ErrNotFound))
		}
		return rollback(tx, domain.ErrInsufficientCredits)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO introduction_requests (`+introductionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.CompanyID, req.ProfessionalID, req.JobRoleID, string(req.State), req.CreatedAt, req.ExpiresAt, req.DecidedAt)
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to insert introduction request: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit introduction request: %w", err)
	}
	return nil
}

// GetIntroductionRequest retrieves a request by ID
func (r *PostgresIntroductionRepository) GetIntroductionRequest(ctx context.Context, id string) (*domain.IntroductionRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+introductionColumns+` FROM introduction_requests WHERE id = $1`, id)
	req, err := scanIntroduction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("introduction request %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get introduction request: %w", err)
	}
	return req, nil
}

// UpdateRequestState moves a request out of change.From and refunds credits in one transaction
func (r *PostgresIntroductionRepository) UpdateRequestState(ctx context.Context, change domain.StateChange) (*domain.IntroductionRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE introduction_requests
		SET state = $1, decided_at = $2
		WHERE id = $3 AND state = $4
		RETURNING `+introductionColumns,
		string(change.To), change.DecidedAt, change.ID, string(change.From))
	req, err := scanIntroduction(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, rollback(tx, fmt.Errorf("failed to update introduction request: %w", err))
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM introduction_requests WHERE id = $1)`, change.ID).Scan(&exists); err != nil {
			return nil, rollback(tx, fmt.Errorf("failed to check introduction request: %w", err))
		}
		if !exists {
			return nil, rollback(tx, fmt.Errorf("introduction request %s: %w", change.ID, domain.ErrNotFound))
		}
		return nil, rollback(tx, domain.ErrInvalidTransition)
	}

	if change.CreditRefund > 0 {
		_, err := tx.ExecContext(ctx, `
			UPDATE companies
			SET introduction_credits = introduction_credits + $1, updated_at = now()
			WHERE id = $2
		`, change.CreditRefund, req.CompanyID)
		if err != nil {
			return nil, rollback(tx, fmt.Errorf("failed to refund credit: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit state change: %w", err)
	}
	return req, nil
}

// ListPendingExpired returns pending requests whose deadline is at or before before, oldest first
func (r *PostgresIntroductionRepository) ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*domain.IntroductionRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+introductionColumns+`
		FROM introduction_requests
		WHERE state = 'pending' AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired requests: %w", err)
	}
	return collectIntroductions(rows)
}

// ListIntroductionRequests returns requests matching filter, newest first
func (r *PostgresIntroductionRepository) ListIntroductionRequests(ctx context.Context, filter domain.IntroductionFilter) ([]*domain.IntroductionRequest, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.CompanyID != "" {
		add("company_id = $%d", filter.CompanyID)
	}
	if filter.ProfessionalID != "" {
		add("professional_id = $%d", filter.ProfessionalID)
	}
	if filter.State != "" {
		add("state = $%d", string(filter.State))
	}

	query := `SELECT ` + introductionColumns + ` FROM introduction_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list introduction requests: %w", err)
	}
	return collectIntroductions(rows)
}

func collectIntroductions(rows *sql.Rows) ([]*domain.IntroductionRequest, error) {
	defer rows.Close()
	var out []*domain.IntroductionRequest
	for rows.Next() {
		req, err := scanIntroduction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan introduction request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
