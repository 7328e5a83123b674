package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// ResourceType identifies the kind of resource being accessed
type ResourceType string

const (
	ResourceIntroduction ResourceType = "introduction"
)

// Relation identifies which side of a resource the caller must be on
type Relation string

const (
	// RelationTarget requires the caller to be the addressed professional
	RelationTarget Relation = "target"
	// RelationOwner requires the caller to belong to the owning company
	RelationOwner Relation = "owner"
	// RelationParty accepts either side
	RelationParty Relation = "party"
)

// ResourcePermission describes a resource-level check
type ResourcePermission struct {
	ResourceType   ResourceType
	ResourceID     string
	CompanyID      string
	ProfessionalID string
	Relation       Relation
}

// IntroductionPermission builds a check against an introduction request
func IntroductionPermission(req *domain.IntroductionRequest, rel Relation) ResourcePermission {
	return ResourcePermission{
		ResourceType:   ResourceIntroduction,
		ResourceID:     req.ID,
		CompanyID:      req.CompanyID,
		ProfessionalID: req.ProfessionalID,
		Relation:       rel,
	}
}

// RequireResourceAccess checks that identity stands in the required relation to a resource.
// Admins bypass resource-level checks.
func (g *AccessGate) RequireResourceAccess(identity domain.Identity, perm ResourcePermission) error {
	if identity.IsAdmin() {
		return nil
	}

	isTarget := perm.ProfessionalID != "" && perm.ProfessionalID == identity.PrincipalID
	isOwner := perm.CompanyID != "" && identity.HasCompany() && perm.CompanyID == identity.CompanyID

	var ok bool
	switch perm.Relation {
	case RelationTarget:
		ok = isTarget
	case RelationOwner:
		ok = isOwner
	case RelationParty:
		ok = isTarget || isOwner
	}
	if ok {
		return nil
	}

	g.logger.Warn("resource access denied",
		slog.String("principal_id", identity.PrincipalID),
		slog.String("resource_type", string(perm.ResourceType)),
		slog.String("resource_id", perm.ResourceID),
		slog.String("relation", string(perm.Relation)),
	)
	return &AuthorizationError{
		PrincipalID:   identity.PrincipalID,
		EffectiveRole: identity.EffectiveRole(),
		Reason:        fmt.Sprintf("not the %s of this %s", perm.Relation, perm.ResourceType),
	}
}
