// Package sqlite provides a single-file SQLite store for development and small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/sqlite/migrations"
	"github.com/aryan0dhankhar/hirebridge/pkg/database"
	_ "modernc.org/sqlite"
)

const introductionColumns = `id, company_id, professional_id, job_role_id, state, created_at, expires_at, decided_at`

// Store persists marketplace state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps the conditional credit updates serialized
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := database.ApplyMigrations(ctx, sqlDB, migrations.FS, database.SQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the SQLite handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

// SaveCompany upserts a company.
func (s *Store) SaveCompany(ctx context.Context, c *domain.Company) error {
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO companies (id, name, tier, subscription_expires_at, introduction_credits, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   tier = excluded.tier,
		   subscription_expires_at = excluded.subscription_expires_at,
		   introduction_credits = excluded.introduction_credits,
		   updated_at = excluded.updated_at`,
		c.ID, c.Name, string(c.Tier), toNullMillis(c.SubscriptionExpiresAt), c.IntroductionCredits,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

// FindCompany returns one company.
func (s *Store) FindCompany(ctx context.Context, id string) (*domain.Company, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, tier, subscription_expires_at, introduction_credits, created_at, updated_at
		 FROM companies WHERE id = ?`, id)
	c := &domain.Company{}
	var tier string
	var expires sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.Name, &tier, &expires, &c.IntroductionCredits, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.Tier = domain.Tier(tier)
	c.SubscriptionExpiresAt = fromNullMillis(expires)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// UpdateCompanyCredits applies delta with an optional expected prior balance.
func (s *Store) UpdateCompanyCredits(ctx context.Context, id string, delta int, expectedPrior *int) (int, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin credit update: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT introduction_credits FROM companies WHERE id = ?`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, rollback(tx, fmt.Errorf("company %s: %w", id, domain.ErrNotFound))
		}
		return 0, rollback(tx, fmt.Errorf("read credits: %w", err))
	}
	if expectedPrior != nil && current != *expectedPrior {
		return current, rollback(tx, domain.ErrBalanceChanged)
	}
	if current+delta < 0 {
		return current, rollback(tx, domain.ErrInsufficientCredits)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE companies SET introduction_credits = ?, updated_at = ? WHERE id = ? AND introduction_credits = ?`,
		current+delta, toMillis(s.now()), id, current)
	if err != nil {
		return 0, rollback(tx, fmt.Errorf("update credits: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit credit update: %w", err)
	}
	return current + delta, nil
}

// SaveProfessional upserts a professional.
func (s *Store) SaveProfessional(ctx context.Context, p *domain.Professional) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO professionals (id, display_name, verified, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name,
		   verified = excluded.verified`,
		p.ID, p.DisplayName, p.Verified, toMillis(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save professional: %w", err)
	}
	return nil
}

// FindProfessional returns one professional.
func (s *Store) FindProfessional(ctx context.Context, id string) (*domain.Professional, error) {
	p := &domain.Professional{}
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, display_name, verified, created_at FROM professionals WHERE id = ?`, id,
	).Scan(&p.ID, &p.DisplayName, &p.Verified, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("professional %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get professional: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// GetActiveRole returns the persisted active role.
func (s *Store) GetActiveRole(ctx context.Context, principalID string) (domain.Role, bool, error) {
	var role string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT active_role FROM principal_profiles WHERE principal_id = ?`, principalID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get active role: %w", err)
	}
	return domain.Role(role), true, nil
}

// SaveActiveRole upserts the active role.
func (s *Store) SaveActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO principal_profiles (principal_id, active_role, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(principal_id) DO UPDATE SET
		   active_role = excluded.active_role,
		   updated_at = excluded.updated_at`,
		principalID, string(role), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("save active role: %w", err)
	}
	return nil
}

// ListRegions returns every region ordered by name.
func (s *Store) ListRegions(ctx context.Context) ([]domain.Region, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT code, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(&region.Code, &region.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

// ListCities returns the cities of a region ordered by name.
func (s *Store) ListCities(ctx context.Context, regionCode string) ([]domain.City, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, region_code, name FROM cities WHERE region_code = ? ORDER BY name`, regionCode)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		var city domain.City
		if err := rows.Scan(&city.ID, &city.RegionCode, &city.Name); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out = append(out, city)
	}
	return out, rows.Err()
}
