package domain

import (
	"context"
	"time"
)

// IntroductionValidity is how long a pending request stays open
const IntroductionValidity = 7 * 24 * time.Hour

// RequestState is the lifecycle state of an introduction request
type RequestState string

const (
	StatePending   RequestState = "pending"
	StateAccepted  RequestState = "accepted"
	StateDeclined  RequestState = "declined"
	StateExpired   RequestState = "expired"
	StateWithdrawn RequestState = "withdrawn"
)

// Event drives an introduction request out of Pending
type Event string

const (
	EventAccept   Event = "accept"
	EventDecline  Event = "decline"
	EventWithdraw Event = "withdraw"
	EventExpire   Event = "expire"
)

// IsTerminal reports whether no further event is accepted
func (s RequestState) IsTerminal() bool {
	switch s {
	case StateAccepted, StateDeclined, StateExpired, StateWithdrawn:
		return true
	default:
		return false
	}
}

// NextState returns the state an event leads to from the given state
func NextState(from RequestState, event Event) (RequestState, error) {
	if from != StatePending {
		return from, ErrInvalidTransition
	}
	switch event {
	case EventAccept:
		return StateAccepted, nil
	case EventDecline:
		return StateDeclined, nil
	case EventWithdraw:
		return StateWithdrawn, nil
	case EventExpire:
		return StateExpired, nil
	default:
		return from, ErrInvalidTransition
	}
}

// CreditRefund is the number of credits returned to the company when a request enters state.
// Only acceptance consumes the reserved credit.
func CreditRefund(to RequestState) int {
	switch to {
	case StateDeclined, StateExpired, StateWithdrawn:
		return 1
	default:
		return 0
	}
}

// IntroductionRequest is a company's request to be introduced to a professional
type IntroductionRequest struct {
	ID             string
	CompanyID      string
	ProfessionalID string
	JobRoleID      string
	State          RequestState
	CreatedAt      time.Time
	ExpiresAt      time.Time
	DecidedAt      *time.Time
}

// IsPastDeadline reports whether the validity window has closed at now.
// A request whose deadline equals now is past it.
func (r *IntroductionRequest) IsPastDeadline(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// StateChange is a conditional state update: it applies only while the request is in From
type StateChange struct {
	ID           string
	From         RequestState
	To           RequestState
	DecidedAt    time.Time
	CreditRefund int
}

// IntroductionFilter narrows a listing of introduction requests
type IntroductionFilter struct {
	CompanyID      string
	ProfessionalID string
	State          RequestState
	Limit          int
}

// IntroductionRepository defines data access for introduction requests
type IntroductionRepository interface {
	// CreateIntroductionRequest debits one credit from the owning company and inserts the
	// request as one atomic unit. It returns ErrInsufficientCredits when the balance is zero.
	CreateIntroductionRequest(ctx context.Context, req *IntroductionRequest) error
	GetIntroductionRequest(ctx context.Context, id string) (*IntroductionRequest, error)
	// UpdateRequestState applies change and its credit refund atomically.
	// It returns ErrInvalidTransition when the request is no longer in change.From.
	UpdateRequestState(ctx context.Context, change StateChange) (*IntroductionRequest, error)
	ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*IntroductionRequest, error)
	ListIntroductionRequests(ctx context.Context, filter IntroductionFilter) ([]*IntroductionRequest, error)
}
