// Package memory provides an in-process store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// Store keeps every aggregate behind one mutex, so each method is a single atomic step.
type Store struct {
	mu            sync.Mutex
	companies     map[string]domain.Company
	professionals map[string]domain.Professional
	activeRoles   map[string]domain.Role
	requests      map[string]domain.IntroductionRequest
	regions       []domain.Region
	cities        map[string][]domain.City
}

// New returns an empty store seeded with the default reference data
func New() *Store {
	s := &Store{
		companies:     make(map[string]domain.Company),
		professionals: make(map[string]domain.Professional),
		activeRoles:   make(map[string]domain.Role),
		requests:      make(map[string]domain.IntroductionRequest),
		cities:        make(map[string][]domain.City),
	}
	s.SetReferenceData(defaultRegions, defaultCities)
	return s
}

var defaultRegions = []domain.Region{
	{Code: "KA", Name: "Karnataka"},
	{Code: "MH", Name: "Maharashtra"},
	{Code: "TN", Name: "Tamil Nadu"},
}

var defaultCities = []domain.City{
	{ID: "ka-blr", RegionCode: "KA", Name: "Bengaluru"},
	{ID: "ka-mys", RegionCode: "KA", Name: "Mysuru"},
	{ID: "mh-bom", RegionCode: "MH", Name: "Mumbai"},
	{ID: "mh-pnq", RegionCode: "MH", Name: "Pune"},
	{ID: "tn-maa", RegionCode: "TN", Name: "Chennai"},
	{ID: "tn-cjb", RegionCode: "TN", Name: "Coimbatore"},
}

// SetReferenceData replaces regions and cities
func (s *Store) SetReferenceData(regions []domain.Region, cities []domain.City) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append([]domain.Region(nil), regions...)
	sort.Slice(s.regions, func(i, j int) bool { return s.regions[i].Name < s.regions[j].Name })
	s.cities = make(map[string][]domain.City)
	for _, c := range cities {
		s.cities[c.RegionCode] = append(s.cities[c.RegionCode], c)
	}
	for code := range s.cities {
		list := s.cities[code]
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) SaveCompany(ctx context.Context, c *domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.companies[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.companies[c.ID] = *c
	return nil
}

func (s *Store) FindCompany(ctx context.Context, id string) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) UpdateCompanyCredits(ctx context.Context, id string, delta int, expectedPrior *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return 0, fmt.Errorf("company %s: %w", id, domain.ErrNotFound)
	}
	if expectedPrior != nil && c.IntroductionCredits != *expectedPrior {
		return c.IntroductionCredits, domain.ErrBalanceChanged
	}
	if c.IntroductionCredits+delta < 0 {
		return c.IntroductionCredits, domain.ErrInsufficientCredits
	}
	c.IntroductionCredits += delta
	c.UpdatedAt = time.Now().UTC()
	s.companies[id] = c
	return c.IntroductionCredits, nil
}

func (s *Store) SaveProfessional(ctx context.Context, p *domain.Professional) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.professionals[p.ID] = *p
	return nil
}

func (s *Store) FindProfessional(ctx context.Context, id string) (*domain.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.professionals[id]
	if !ok {
		return nil, fmt.Errorf("professional %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetActiveRole(ctx context.Context, principalID string) (domain.Role, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.activeRoles[principalID]
	return role, ok, nil
}

func (s *Store) SaveActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRoles[principalID] = role
	return nil
}

func (s *Store) CreateIntroductionRequest(ctx context.Context, req *domain.IntroductionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[req.CompanyID]
	if !ok {
		return fmt.Errorf("company %s: %w", req.CompanyID, domain.ErrNotFound)
	}
	if c.IntroductionCredits <= 0 {
		return domain.ErrInsufficientCredits
	}
	if _, dup := s.requests[req.ID]; dup {
		return fmt.Errorf("introduction request %s already exists", req.ID)
	}
	c.IntroductionCredits--
	s.companies[c.ID] = c
	s.requests[req.ID] = *req
	return nil
}

func (s *Store) GetIntroductionRequest(ctx context.Context, id string) (*domain.IntroductionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("introduction request %s: %w", id, domain.ErrNotFound)
	}
	return &req, nil
}

func (s *Store) UpdateRequestState(ctx context.Context, change domain.StateChange) (*domain.IntroductionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[change.ID]
	if !ok {
		return nil, fmt.Errorf("introduction request %s: %w", change.ID, domain.ErrNotFound)
	}
	if req.State != change.From {
		return nil, domain.ErrInvalidTransition
	}
	decided := change.DecidedAt
	req.State = change.To
	req.DecidedAt = &decided
	s.requests[req.ID] = req

	if change.CreditRefund > 0 {
		if c, ok := s.companies[req.CompanyID]; ok {
			c.IntroductionCredits += change.CreditRefund
			s.companies[c.ID] = c
		}
	}
	return &req, nil
}

func (s *Store) ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*domain.IntroductionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.IntroductionRequest
	for _, req := range s.requests {
		if req.State == domain.StatePending && !req.ExpiresAt.After(before) {
			r := req
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListIntroductionRequests(ctx context.Context, filter domain.IntroductionFilter) ([]*domain.IntroductionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.IntroductionRequest
	for _, req := range s.requests {
		if filter.CompanyID != "" && req.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ProfessionalID != "" && req.ProfessionalID != filter.ProfessionalID {
			continue
		}
		if filter.State != "" && req.State != filter.State {
			continue
		}
		r := req
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListRegions(ctx context.Context) ([]domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Region(nil), s.regions...), nil
}

func (s *Store) ListCities(ctx context.Context, regionCode string) ([]domain.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.City(nil), s.cities[regionCode]...), nil
}
