package domain

import (
	"context"
	"fmt"
	"strings"
)

// Role is one of the fixed marketplace roles
type Role string

const (
	RoleProfessional Role = "professional"
	RoleHrPartner    Role = "hr_partner"
	RoleAdmin        Role = "admin"
)

// Roles lists every defined role in a stable order
var Roles = []Role{RoleProfessional, RoleHrPartner, RoleAdmin}

// ParseRole matches a raw role string against the role enumeration.
// Matching is case-insensitive and treats '-' and ' ' as '_'.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, r := range Roles {
		if string(r) == normalized {
			return r, nil
		}
	}
	return "", &IdentityError{Kind: IdentityErrUnknownRole, Value: raw}
}

// switchable reports whether a role can be the active side of a dual-role identity
func switchable(r Role) bool {
	return r == RoleProfessional || r == RoleHrPartner
}

// RoleBinding describes how roles are bound to an identity.
// Implementations are SingleRole and DualRole.
type RoleBinding interface {
	PrimaryRole() Role
	EffectiveRole() Role
	IsDual() bool
	sealed()
}

// SingleRole binds exactly one role
type SingleRole struct {
	role Role
}

// NewSingleRole binds one role to an identity
func NewSingleRole(role Role) SingleRole {
	return SingleRole{role: role}
}

func (s SingleRole) PrimaryRole() Role   { return s.role }
func (s SingleRole) EffectiveRole() Role { return s.role }
func (s SingleRole) IsDual() bool        { return false }
func (SingleRole) sealed()               {}

// DualRole binds an HR partner and a professional role to the same principal.
// Active selects whose capability set applies.
type DualRole struct {
	primary Role
	active  Role
}

// NewDualRole builds a dual-role binding. Neither side may be Admin.
func NewDualRole(primary, active Role) (DualRole, error) {
	if !switchable(primary) {
		return DualRole{}, &IdentityError{Kind: IdentityErrInvalidDualRole, Value: string(primary)}
	}
	if !switchable(active) {
		return DualRole{}, &IdentityError{Kind: IdentityErrInvalidActiveRole, Value: string(active)}
	}
	return DualRole{primary: primary, active: active}, nil
}

func (d DualRole) PrimaryRole() Role   { return d.primary }
func (d DualRole) EffectiveRole() Role { return d.active }
func (d DualRole) IsDual() bool        { return true }
func (DualRole) sealed()               {}

// ActiveRole returns the currently selected role
func (d DualRole) ActiveRole() Role { return d.active }

// Identity is the normalized form of an authenticated principal
type Identity struct {
	PrincipalID string
	CompanyID   string // empty unless the identity can act as an HR partner
	Roles       RoleBinding
}

// Role returns the primary role
func (i Identity) Role() Role {
	if i.Roles == nil {
		return ""
	}
	return i.Roles.PrimaryRole()
}

// EffectiveRole returns the role whose capabilities currently apply
func (i Identity) EffectiveRole() Role {
	if i.Roles == nil {
		return ""
	}
	return i.Roles.EffectiveRole()
}

// HasDualRole reports whether the identity holds both marketplace roles
func (i Identity) HasDualRole() bool {
	return i.Roles != nil && i.Roles.IsDual()
}

// ActiveRole returns the active role of a dual-role identity
func (i Identity) ActiveRole() (Role, bool) {
	d, ok := i.Roles.(DualRole)
	if !ok {
		return "", false
	}
	return d.active, true
}

// HasCompany reports whether the identity is affiliated with a company
func (i Identity) HasCompany() bool {
	return i.CompanyID != ""
}

// IsAdmin reports whether the primary role is Admin
func (i Identity) IsAdmin() bool {
	return i.Role() == RoleAdmin
}

// WithActiveRole returns a copy of a dual-role identity with a different active role
func (i Identity) WithActiveRole(role Role) (Identity, error) {
	d, ok := i.Roles.(DualRole)
	if !ok {
		return i, &IdentityError{Kind: IdentityErrNotDualRole, Value: i.PrincipalID}
	}
	next, err := NewDualRole(d.primary, role)
	if err != nil {
		return i, err
	}
	i.Roles = next
	return i, nil
}

func (i Identity) String() string {
	if active, ok := i.ActiveRole(); ok {
		return fmt.Sprintf("%s(%s, active=%s)", i.PrincipalID, i.Role(), active)
	}
	return fmt.Sprintf("%s(%s)", i.PrincipalID, i.Role())
}

// Claims is the raw claims bag supplied by the identity provider
type Claims struct {
	Subject     string
	Role        string
	HasDualRole bool
	ActiveRole  string
	CompanyID   string
}

// IdentityProvider is the external identity provider
type IdentityProvider interface {
	// Claims validates a bearer token and returns the principal's current claims
	Claims(ctx context.Context, token string) (Claims, error)
	// PersistActiveRole stores the principal's active-role choice in its profile
	PersistActiveRole(ctx context.Context, principalID string, role Role) error
}
