package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/events"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/tracing"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
)

// Box selects which side of the introduction ledger to list
type Box string

const (
	BoxSent     Box = "sent"
	BoxReceived Box = "received"
)

// CreateIntroductionInput is the request to introduce a company to a professional
type CreateIntroductionInput struct {
	ProfessionalID string `json:"professionalId"`
	JobRoleID      string `json:"jobRoleId"`
}

// IntroductionService owns the introduction request lifecycle and its credit accounting
type IntroductionService struct {
	intros       domain.IntroductionRepository
	companies    domain.CompanyRepository
	profiles     domain.ProfileRepository
	gate         *security.AccessGate
	entitlements *EntitlementService
	publisher    events.Publisher
	audit        *audit.Logger
	logger       *slog.Logger

	now          func() time.Time
	newID        func() string
	expireOnRead bool
}

// NewIntroductionService creates a new introduction service
func NewIntroductionService(
	intros domain.IntroductionRepository,
	companies domain.CompanyRepository,
	profiles domain.ProfileRepository,
	gate *security.AccessGate,
	entitlements *EntitlementService,
	publisher events.Publisher,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *IntroductionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntroductionService{
		intros:       intros,
		companies:    companies,
		profiles:     profiles,
		gate:         gate,
		entitlements: entitlements,
		publisher:    publisher,
		audit:        auditLog,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock replaces the time source
func (s *IntroductionService) WithClock(now func() time.Time) *IntroductionService {
	s.now = now
	return s
}

// WithExpireOnRead makes Get expire an overdue pending request before returning it
func (s *IntroductionService) WithExpireOnRead(enabled bool) *IntroductionService {
	s.expireOnRead = enabled
	return s
}

func (s *IntroductionService) clock() time.Time {
	return s.now().UTC()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create reserves one of the company's credits and opens a pending request
func (s *IntroductionService) Create(ctx context.Context, id domain.Identity, in CreateIntroductionInput) (req *domain.IntroductionRequest, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "IntroductionService.Create", trace.WithAttributes(
		attribute.String("principal.id", id.PrincipalID),
		attribute.String("company.id", id.CompanyID),
		attribute.String("professional.id", in.ProfessionalID),
	))
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = resultLabel(err)
		}
		metrics.ObserveCreate(result, time.Since(start))
		endSpan(span, err)
	}()

	if err := s.gate.Require(id, security.CapSendIntroductionRequest); err != nil {
		s.audit.LogDenied(ctx, id.CompanyID, id.PrincipalID, err.Error())
		return nil, err
	}
	if !id.HasCompany() {
		return nil, &security.AuthorizationError{
			PrincipalID:   id.PrincipalID,
			EffectiveRole: id.EffectiveRole(),
			Reason:        "no company affiliation",
		}
	}
	if in.ProfessionalID == "" {
		return nil, fmt.Errorf("professional id is required: %w", domain.ErrNotFound)
	}

	ent, err := s.entitlements.RequireFeature(ctx, id, domain.FeatureIntroduction)
	if err != nil {
		return nil, err
	}
	if ent.CreditsRemaining < 1 {
		return nil, domain.ErrInsufficientCredits
	}
	if _, err := s.profiles.FindProfessional(ctx, in.ProfessionalID); err != nil {
		return nil, err
	}

	now := s.clock()
	req = &domain.IntroductionRequest{
		ID:             s.newID(),
		CompanyID:      id.CompanyID,
		ProfessionalID: in.ProfessionalID,
		JobRoleID:      in.JobRoleID,
		State:          domain.StatePending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(domain.IntroductionValidity),
	}
	if err := s.intros.CreateIntroductionRequest(ctx, req); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.logger.Info("introduction rejected: no credits",
				slog.String("company_id", id.CompanyID),
				slog.String("principal_id", id.PrincipalID),
			)
		}
		return nil, err
	}

	metrics.ObserveCredits("reserve", -1)
	s.audit.LogTransition(ctx, req.CompanyID, id.PrincipalID, req.ID, "create", string(req.State))
	s.publish(req, now)
	s.logger.Info("introduction requested",
		slog.String("request_id", req.ID),
		slog.String("company_id", req.CompanyID),
		slog.String("professional_id", req.ProfessionalID),
	)
	return req, nil
}

// Accept is the target professional agreeing to the introduction. The reserved credit stays spent.
func (s *IntroductionService) Accept(ctx context.Context, id domain.Identity, requestID string) (*domain.IntroductionRequest, error) {
	return s.transition(ctx, id, requestID, domain.EventAccept, security.CapAcceptIntroduction, security.RelationTarget)
}

// Decline is the target professional refusing the introduction. The credit is refunded.
func (s *IntroductionService) Decline(ctx context.Context, id domain.Identity, requestID string) (*domain.IntroductionRequest, error) {
	return s.transition(ctx, id, requestID, domain.EventDecline, security.CapDeclineIntroduction, security.RelationTarget)
}

// Withdraw is the creating company cancelling the introduction. The credit is refunded.
func (s *IntroductionService) Withdraw(ctx context.Context, id domain.Identity, requestID string) (*domain.IntroductionRequest, error) {
	return s.transition(ctx, id, requestID, domain.EventWithdraw, security.CapWithdrawIntroduction, security.RelationOwner)
}

func (s *IntroductionService) transition(
	ctx context.Context,
	id domain.Identity,
	requestID string,
	event domain.Event,
	capability security.Capability,
	relation security.Relation,
) (updated *domain.IntroductionRequest, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "IntroductionService."+string(event), trace.WithAttributes(
		attribute.String("principal.id", id.PrincipalID),
		attribute.String("request.id", requestID),
	))
	defer func() { endSpan(span, err) }()

	if err := s.gate.Require(id, capability); err != nil {
		s.audit.LogDenied(ctx, id.CompanyID, id.PrincipalID, err.Error())
		return nil, err
	}

	req, err := s.intros.GetIntroductionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireResourceAccess(id, security.IntroductionPermission(req, relation)); err != nil {
		s.audit.LogDenied(ctx, id.CompanyID, id.PrincipalID, err.Error())
		return nil, err
	}

	now := s.clock()
	if req.State == domain.StatePending && req.IsPastDeadline(now) {
		if _, err := s.expireRequest(ctx, req, now, "touch"); err != nil {
			return nil, err
		}
		metrics.ObserveTransition(string(event), "rejected")
		return nil, fmt.Errorf("request %s expired at %s: %w", req.ID, req.ExpiresAt.Format(time.RFC3339), domain.ErrInvalidTransition)
	}

	to, err := domain.NextState(req.State, event)
	if err != nil {
		metrics.ObserveTransition(string(event), "rejected")
		return nil, fmt.Errorf("cannot %s a %s request: %w", event, req.State, err)
	}

	refund := domain.CreditRefund(to)
	updated, err = s.intros.UpdateRequestState(ctx, domain.StateChange{
		ID:           req.ID,
		From:         req.State,
		To:           to,
		DecidedAt:    now,
		CreditRefund: refund,
	})
	if err != nil {
		metrics.ObserveTransition(string(to), resultLabel(err))
		return nil, err
	}

	metrics.ObserveTransition(string(to), "ok")
	if refund > 0 {
		metrics.ObserveCredits("refund", refund)
	}
	s.audit.LogTransition(ctx, updated.CompanyID, id.PrincipalID, updated.ID, string(event), string(updated.State))
	s.publish(updated, now)
	s.logger.Info("introduction transitioned",
		slog.String("request_id", updated.ID),
		slog.String("event", string(event)),
		slog.String("state", string(updated.State)),
	)
	return updated, nil
}

// Expire moves an overdue pending request to Expired. It reports false without error when the
// request is not yet due or already left Pending, so sweeps can be repeated safely.
func (s *IntroductionService) Expire(ctx context.Context, requestID string) (bool, error) {
	req, err := s.intros.GetIntroductionRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	return s.expireRequest(ctx, req, s.clock(), "sweep")
}

func (s *IntroductionService) expireRequest(ctx context.Context, req *domain.IntroductionRequest, now time.Time, source string) (bool, error) {
	if req.State != domain.StatePending || !req.IsPastDeadline(now) {
		return false, nil
	}
	updated, err := s.intros.UpdateRequestState(ctx, domain.StateChange{
		ID:           req.ID,
		From:         domain.StatePending,
		To:           domain.StateExpired,
		DecidedAt:    now,
		CreditRefund: domain.CreditRefund(domain.StateExpired),
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return false, nil
	}
	if err != nil {
		metrics.ObserveTransition(string(domain.StateExpired), "error")
		return false, err
	}

	metrics.ObserveTransition(string(domain.StateExpired), "ok")
	metrics.ObserveCredits("refund", 1)
	s.audit.LogTransition(ctx, updated.CompanyID, "system", updated.ID, "expire", string(updated.State))
	s.publish(updated, now)
	s.logger.Info("introduction expired",
		slog.String("request_id", updated.ID),
		slog.String("company_id", updated.CompanyID),
		slog.String("source", source),
	)
	return true, nil
}

// Get returns one request to either party, or to an admin
func (s *IntroductionService) Get(ctx context.Context, id domain.Identity, requestID string) (*domain.IntroductionRequest, error) {
	req, err := s.intros.GetIntroductionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	capability := security.CapViewSentIntroductions
	relation := security.RelationOwner
	if req.ProfessionalID == id.PrincipalID {
		capability = security.CapViewReceivedIntroductions
		relation = security.RelationTarget
	}
	if err := s.gate.Require(id, capability); err != nil {
		return nil, err
	}
	if err := s.gate.RequireResourceAccess(id, security.IntroductionPermission(req, relation)); err != nil {
		return nil, err
	}

	if s.expireOnRead {
		expired, err := s.expireRequest(ctx, req, s.clock(), "read")
		if err != nil {
			return nil, err
		}
		if expired {
			return s.intros.GetIntroductionRequest(ctx, requestID)
		}
	}
	return req, nil
}

// List returns the requests a company sent or a professional received, newest first
func (s *IntroductionService) List(ctx context.Context, id domain.Identity, box Box, state domain.RequestState, limit int) ([]*domain.IntroductionRequest, error) {
	filter := domain.IntroductionFilter{State: state, Limit: limit}
	switch box {
	case BoxSent:
		if err := s.gate.Require(id, security.CapViewSentIntroductions); err != nil {
			return nil, err
		}
		if !id.HasCompany() {
			return nil, &security.AuthorizationError{
				PrincipalID:   id.PrincipalID,
				EffectiveRole: id.EffectiveRole(),
				Reason:        "no company affiliation",
			}
		}
		filter.CompanyID = id.CompanyID
	case BoxReceived:
		if err := s.gate.Require(id, security.CapViewReceivedIntroductions); err != nil {
			return nil, err
		}
		filter.ProfessionalID = id.PrincipalID
	default:
		return nil, fmt.Errorf("unknown box %q: %w", box, domain.ErrNotFound)
	}
	return s.intros.ListIntroductionRequests(ctx, filter)
}

// GrantCredits adjusts a company's balance. With expectedPrior set, the adjustment only applies
// if the balance still equals it.
func (s *IntroductionService) GrantCredits(ctx context.Context, id domain.Identity, companyID string, delta int, expectedPrior *int) (int, error) {
	if err := s.gate.Require(id, security.CapGrantIntroductionCredits); err != nil {
		s.audit.LogDenied(ctx, companyID, id.PrincipalID, err.Error())
		return 0, err
	}
	balance, err := s.companies.UpdateCompanyCredits(ctx, companyID, delta, expectedPrior)
	if err != nil {
		return balance, err
	}

	metrics.ObserveCredits("grant", delta)
	s.audit.LogCredits(ctx, companyID, id.PrincipalID, fmt.Sprintf("delta=%d balance=%d", delta, balance))
	s.logger.Info("introduction credits adjusted",
		slog.String("company_id", companyID),
		slog.Int("delta", delta),
		slog.Int("balance", balance),
	)
	return balance, nil
}

func (s *IntroductionService) publish(req *domain.IntroductionRequest, at time.Time) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.NewEvent("introduction."+string(req.State), req, at))
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, security.ErrUnauthorized):
		return "denied"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "rejected"
	case errors.Is(err, domain.ErrUpgradeRequired):
		return "upgrade_required"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
