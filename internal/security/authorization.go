package security

import (
	"fmt"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// Capability represents an atomic permission
type Capability string

const (
	CapViewOwnProfile            Capability = "view_own_profile"
	CapEditOwnProfile            Capability = "edit_own_profile"
	CapSearchProfessionals       Capability = "search_professionals"
	CapViewProfessionalProfiles  Capability = "view_professional_profiles"
	CapSendIntroductionRequest   Capability = "send_introduction_request"
	CapWithdrawIntroduction      Capability = "withdraw_introduction"
	CapViewSentIntroductions     Capability = "view_sent_introductions"
	CapViewReceivedIntroductions Capability = "view_received_introductions"
	CapAcceptIntroduction        Capability = "accept_introduction"
	CapDeclineIntroduction       Capability = "decline_introduction"
	CapManageCompanyProfile      Capability = "manage_company_profile"
	CapVerifyProfessionals       Capability = "verify_professionals"
	CapManageUsers               Capability = "manage_users"
	CapGrantIntroductionCredits  Capability = "grant_introduction_credits"
	CapRunExpirySweep            Capability = "run_expiry_sweep"
	CapViewAuditLog              Capability = "view_audit_log"
)

// AllCapabilities is the full capability enumeration. Admin is granted exactly this set.
var AllCapabilities = []Capability{
	CapViewOwnProfile,
	CapEditOwnProfile,
	CapSearchProfessionals,
	CapViewProfessionalProfiles,
	CapSendIntroductionRequest,
	CapWithdrawIntroduction,
	CapViewSentIntroductions,
	CapViewReceivedIntroductions,
	CapAcceptIntroduction,
	CapDeclineIntroduction,
	CapManageCompanyProfile,
	CapVerifyProfessionals,
	CapManageUsers,
	CapGrantIntroductionCredits,
	CapRunExpirySweep,
	CapViewAuditLog,
}

// RoleGrants maps the non-admin roles to their capabilities
var RoleGrants = map[domain.Role][]Capability{
	domain.RoleProfessional: {
		CapViewOwnProfile,
		CapEditOwnProfile,
		CapViewReceivedIntroductions,
		CapAcceptIntroduction,
		CapDeclineIntroduction,
	},
	domain.RoleHrPartner: {
		CapViewOwnProfile,
		CapEditOwnProfile,
		CapSearchProfessionals,
		CapViewProfessionalProfiles,
		CapSendIntroductionRequest,
		CapWithdrawIntroduction,
		CapViewSentIntroductions,
		CapManageCompanyProfile,
	},
}

// Catalog is the checked role -> capability table
type Catalog struct {
	all  []Capability
	sets map[domain.Role]map[Capability]struct{}
}

// NewCatalog builds a catalog and verifies it. Admin's set is computed from all;
// any grant outside the enumeration, or an explicit Admin grant that differs from it,
// is a ConfigurationError.
func NewCatalog(all []Capability, grants map[domain.Role][]Capability) (*Catalog, error) {
	defined := make(map[Capability]struct{}, len(all))
	for _, c := range all {
		if _, dup := defined[c]; dup {
			return nil, &ConfigurationError{Detail: fmt.Sprintf("capability %q defined twice", c)}
		}
		defined[c] = struct{}{}
	}

	sets := make(map[domain.Role]map[Capability]struct{}, len(domain.Roles))
	for role, caps := range grants {
		if !isKnownRole(role) {
			return nil, &ConfigurationError{Detail: fmt.Sprintf("grant for undefined role %q", role)}
		}
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			if _, ok := defined[c]; !ok {
				return nil, &ConfigurationError{Detail: fmt.Sprintf("role %q granted undefined capability %q", role, c)}
			}
			set[c] = struct{}{}
		}
		sets[role] = set
	}

	if explicit, ok := sets[domain.RoleAdmin]; ok && len(explicit) != len(defined) {
		return nil, &ConfigurationError{Detail: fmt.Sprintf(
			"admin grants %d capabilities, %d are defined", len(explicit), len(defined))}
	}
	sets[domain.RoleAdmin] = defined

	for _, role := range domain.Roles {
		if _, ok := sets[role]; !ok {
			sets[role] = map[Capability]struct{}{}
		}
	}

	return &Catalog{all: append([]Capability(nil), all...), sets: sets}, nil
}

// DefaultCatalog builds the catalog from AllCapabilities and RoleGrants
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(AllCapabilities, RoleGrants)
}

// MustDefaultCatalog is DefaultCatalog for tests and package-level setup
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// CapabilitiesFor returns the capabilities granted to role in enumeration order
func (c *Catalog) CapabilitiesFor(role domain.Role) ([]Capability, error) {
	set, ok := c.sets[role]
	if !ok {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("no capability set for role %q", role)}
	}
	out := make([]Capability, 0, len(set))
	for _, capability := range c.all {
		if _, ok := set[capability]; ok {
			out = append(out, capability)
		}
	}
	return out, nil
}

// Grants reports whether role holds capability
func (c *Catalog) Grants(role domain.Role, capability Capability) bool {
	set, ok := c.sets[role]
	if !ok {
		return false
	}
	_, ok = set[capability]
	return ok
}

// All returns the capability enumeration
func (c *Catalog) All() []Capability {
	return append([]Capability(nil), c.all...)
}

func isKnownRole(role domain.Role) bool {
	for _, r := range domain.Roles {
		if r == role {
			return true
		}
	}
	return false
}
