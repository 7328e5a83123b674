package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// PostgresReferenceRepository serves regions and cities from PostgreSQL
type PostgresReferenceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresReferenceRepository(db *sql.DB, logger *slog.Logger) *PostgresReferenceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReferenceRepository{db: db, logger: logger}
}

func (r *PostgresReferenceRepository) ListRegions(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(&region.Code, &region.Name); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

func (r *PostgresReferenceRepository) ListCities(ctx context.Context, regionCode string) ([]domain.City, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, region_code, name FROM cities WHERE region_code = $1 ORDER BY name`, regionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		var city domain.City
		if err := rows.Scan(&city.ID, &city.RegionCode, &city.Name); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		out = append(out, city)
	}
	return out, rows.Err()
}
