package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// PostgresCompanyRepository implements domain.CompanyRepository using PostgreSQL
type PostgresCompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCompanyRepository creates a new company repository
func NewPostgresCompanyRepository(db *sql.DB, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompanyRepository{db: db, logger: logger}
}

// SaveCompany inserts or replaces a company
func (r *PostgresCompanyRepository) SaveCompany(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, tier, subscription_expires_at, introduction_credits)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tier = EXCLUDED.tier,
			subscription_expires_at = EXCLUDED.subscription_expires_at,
			introduction_credits = EXCLUDED.introduction_credits,
			updated_at = now()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, string(c.Tier), c.SubscriptionExpiresAt, c.IntroductionCredits).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

// FindCompany retrieves a company by ID
func (r *PostgresCompanyRepository) FindCompany(ctx context.Context, id string) (*domain.Company, error) {
	c := &domain.Company{}
	var tier string
	var expires sql.NullTime
	query := `
		SELECT id, name, tier, subscription_expires_at, introduction_credits, created_at, updated_at
		FROM companies
		WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &tier, &expires, &c.IntroductionCredits, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	c.Tier = domain.Tier(tier)
	c.SubscriptionExpiresAt = nullTime(&expires)
	return c, nil
}

// UpdateCompanyCredits adds delta to the balance in one conditional statement
func (r *PostgresCompanyRepository) UpdateCompanyCredits(ctx context.Context, id string, delta int, expectedPrior *int) (int, error) {
	var prior sql.NullInt64
	if expectedPrior != nil {
		prior = sql.NullInt64{Int64: int64(*expectedPrior), Valid: true}
	}

	query := `
		UPDATE companies
		SET introduction_credits = introduction_credits + $2, updated_at = now()
		WHERE id = $1
		  AND introduction_credits + $2 >= 0
		  AND ($3::integer IS NULL OR introduction_credits = $3::integer)
		RETURNING introduction_credits
	`
	var balance int
	err := r.db.QueryRowContext(ctx, query, id, delta, prior).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to update credits: %w", err)
	}

	var current int
	err = r.db.QueryRowContext(ctx, `SELECT introduction_credits FROM companies WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	if expectedPrior != nil && current != *expectedPrior {
		return current, domain.ErrBalanceChanged
	}
	return current, domain.ErrInsufficientCredits
}
