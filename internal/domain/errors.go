package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a company, request or professional does not resolve
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCredits is returned when a company has no introduction credit left
	ErrInsufficientCredits = errors.New("insufficient introduction credits")
	// ErrInvalidTransition is returned when an event is not valid from the current state
	ErrInvalidTransition = errors.New("invalid introduction transition")
	// ErrUpgradeRequired is returned when the subscription does not entitle the action
	ErrUpgradeRequired = errors.New("subscription upgrade required")
	// ErrBalanceChanged is returned when a credit adjustment lost a compare-and-swap
	ErrBalanceChanged = errors.New("credit balance changed concurrently")

	// ErrUnknownRole matches IdentityError values of kind IdentityErrUnknownRole
	ErrUnknownRole = errors.New("unknown role")
	// ErrNotDualRole matches IdentityError values of kind IdentityErrNotDualRole
	ErrNotDualRole = errors.New("identity does not hold a dual role")
)

// IdentityErrorKind classifies malformed identity claims
type IdentityErrorKind string

const (
	IdentityErrUnknownRole       IdentityErrorKind = "unknown_role"
	IdentityErrInvalidDualRole   IdentityErrorKind = "invalid_dual_role"
	IdentityErrInvalidActiveRole IdentityErrorKind = "invalid_active_role"
	IdentityErrNotDualRole       IdentityErrorKind = "not_dual_role"
	IdentityErrMissingSubject    IdentityErrorKind = "missing_subject"
)

// IdentityError reports a malformed or unusable identity claim
type IdentityError struct {
	Kind  IdentityErrorKind
	Value string
}

func (e *IdentityError) Error() string {
	switch e.Kind {
	case IdentityErrUnknownRole:
		return fmt.Sprintf("identity: unknown role %q", e.Value)
	case IdentityErrInvalidDualRole:
		return fmt.Sprintf("identity: role %q cannot hold a dual role", e.Value)
	case IdentityErrInvalidActiveRole:
		return fmt.Sprintf("identity: role %q cannot be active", e.Value)
	case IdentityErrNotDualRole:
		return fmt.Sprintf("identity: principal %q does not hold a dual role", e.Value)
	case IdentityErrMissingSubject:
		return "identity: missing subject"
	default:
		return fmt.Sprintf("identity: %s %q", e.Kind, e.Value)
	}
}

// Is lets errors.Is match the kind-specific sentinels
func (e *IdentityError) Is(target error) bool {
	switch target {
	case ErrUnknownRole:
		return e.Kind == IdentityErrUnknownRole
	case ErrNotDualRole:
		return e.Kind == IdentityErrNotDualRole
	}
	return false
}
