package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntroduction(row rowScanner) (*domain.IntroductionRequest, error) {
	req := &domain.IntroductionRequest{}
	var state string
	var createdAt, expiresAt int64
	var decidedAt sql.NullInt64
	if err := row.Scan(&req.ID, &req.CompanyID, &req.ProfessionalID, &req.JobRoleID, &state,
		&createdAt, &expiresAt, &decidedAt); err != nil {
		return nil, err
	}
	req.State = domain.RequestState(state)
	req.CreatedAt = fromMillis(createdAt)
	req.ExpiresAt = fromMillis(expiresAt)
	req.DecidedAt = fromNullMillis(decidedAt)
	return req, nil
}

// CreateIntroductionRequest reserves one credit and inserts req atomically.
func (s *Store) CreateIntroductionRequest(ctx context.Context, req *domain.IntroductionRequest) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create introduction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE companies SET introduction_credits = introduction_credits - 1, updated_at = ?
		 WHERE id = ? AND introduction_credits > 0`,
		toMillis(s.now()), req.CompanyID)
	if err != nil {
		return rollback(tx, fmt.Errorf("reserve credit: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return rollback(tx, fmt.Errorf("reserve credit rows: %w", err))
	}
	if affected == 0 {
		var found int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM companies WHERE id = ?`, req.CompanyID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return rollback(tx, fmt.Errorf("company %s: %w", req.CompanyID, domain.ErrNotFound))
		}
		if err != nil {
			return rollback(tx, fmt.Errorf("check company: %w", err))
		}
		return rollback(tx, domain.ErrInsufficientCredits)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO introduction_requests (`+introductionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.CompanyID, req.ProfessionalID, req.JobRoleID, string(req.State),
		toMillis(req.CreatedAt), toMillis(req.ExpiresAt), toNullMillis(req.DecidedAt))
	if err != nil {
		return rollback(tx, fmt.Errorf("insert introduction: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create introduction: %w", err)
	}
	return nil
}

// GetIntroductionRequest returns one request.
func (s *Store) GetIntroductionRequest(ctx context.Context, id string) (*domain.IntroductionRequest, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+introductionColumns+` FROM introduction_requests WHERE id = ?`, id)
	req, err := scanIntroduction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("introduction request %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get introduction: %w", err)
	}
	return req, nil
}

// UpdateRequestState applies a conditional state change and its refund atomically.
func (s *Store) UpdateRequestState(ctx context.Context, change domain.StateChange) (*domain.IntroductionRequest, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin state change: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE introduction_requests SET state = ?, decided_at = ? WHERE id = ? AND state = ?`,
		string(change.To), toMillis(change.DecidedAt), change.ID, string(change.From))
	if err != nil {
		return nil, rollback(tx, fmt.Errorf("update introduction state: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, rollback(tx, fmt.Errorf("update introduction rows: %w", err))
	}

	row := tx.QueryRowContext(ctx, `SELECT `+introductionColumns+` FROM introduction_requests WHERE id = ?`, change.ID)
	req, err := scanIntroduction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rollback(tx, fmt.Errorf("introduction request %s: %w", change.ID, domain.ErrNotFound))
		}
		return nil, rollback(tx, fmt.Errorf("reload introduction: %w", err))
	}
	if affected == 0 {
		return nil, rollback(tx, domain.ErrInvalidTransition)
	}

	if change.CreditRefund > 0 {
		_, err := tx.ExecContext(ctx,
			`UPDATE companies SET introduction_credits = introduction_credits + ?, updated_at = ? WHERE id = ?`,
			change.CreditRefund, toMillis(change.DecidedAt), req.CompanyID)
		if err != nil {
			return nil, rollback(tx, fmt.Errorf("refund credit: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit state change: %w", err)
	}
	return req, nil
}

// ListPendingExpired returns pending requests due at or before before.
func (s *Store) ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*domain.IntroductionRequest, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+introductionColumns+` FROM introduction_requests
		 WHERE state = ? AND expires_at <= ?
		 ORDER BY expires_at ASC LIMIT ?`,
		string(domain.StatePending), toMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired introductions: %w", err)
	}
	return collect(rows)
}

// ListIntroductionRequests returns requests matching filter, newest first.
func (s *Store) ListIntroductionRequests(ctx context.Context, filter domain.IntroductionFilter) ([]*domain.IntroductionRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.ProfessionalID != "" {
		where = append(where, "professional_id = ?")
		args = append(args, filter.ProfessionalID)
	}
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(filter.State))
	}

	query := `SELECT ` + introductionColumns + ` FROM introduction_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list introductions: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*domain.IntroductionRequest, error) {
	defer rows.Close()
	var out []*domain.IntroductionRequest
	for rows.Next() {
		req, err := scanIntroduction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan introduction: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
