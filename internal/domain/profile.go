package domain

import (
	"context"
	"time"
)

// Professional is the target of introduction requests
type Professional struct {
	ID          string
	DisplayName string
	Verified    bool
	CreatedAt   time.Time
}

// ProfileRepository defines data access for principal profiles
type ProfileRepository interface {
	FindProfessional(ctx context.Context, id string) (*Professional, error)
	// GetActiveRole returns the persisted active role; ok is false when none was chosen
	GetActiveRole(ctx context.Context, principalID string) (role Role, ok bool, err error)
	SaveActiveRole(ctx context.Context, principalID string, role Role) error
}

// Region is a state or province used by onboarding forms
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// City belongs to a region
type City struct {
	ID         string `json:"id"`
	RegionCode string `json:"regionCode"`
	Name       string `json:"name"`
}

// ReferenceRepository defines read access to near-static reference data
type ReferenceRepository interface {
	ListRegions(ctx context.Context) ([]Region, error)
	ListCities(ctx context.Context, regionCode string) ([]City, error)
}

// Seeder loads companies and professionals owned by other systems
type Seeder interface {
	SaveCompany(ctx context.Context, c *Company) error
	SaveProfessional(ctx context.Context, p *Professional) error
}

// Store groups every repository a backend provides
type Store interface {
	CompanyRepository
	IntroductionRepository
	ProfileRepository
	ReferenceRepository
	Seeder
	Ping(ctx context.Context) error
	Close() error
}
