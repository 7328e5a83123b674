package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNextStateFullEventMatrix(t *testing.T) {
	cases := []struct {
		from   RequestState
		event  Event
		wantOK bool
		wantTo RequestState
		label  string
	}{
		{from: StatePending, event: EventAccept, wantOK: true, wantTo: StateAccepted, label: "pending-accept"},
		{from: StatePending, event: EventDecline, wantOK: true, wantTo: StateDeclined, label: "pending-decline"},
		{from: StatePending, event: EventWithdraw, wantOK: true, wantTo: StateWithdrawn, label: "pending-withdraw"},
		{from: StatePending, event: EventExpire, wantOK: true, wantTo: StateExpired, label: "pending-expire"},
		{from: StatePending, event: Event("reopen"), wantOK: false, wantTo: StatePending, label: "pending-unknown"},
		{from: StateAccepted, event: EventDecline, wantOK: false, wantTo: StateAccepted, label: "accepted-decline"},
		{from: StateAccepted, event: EventWithdraw, wantOK: false, wantTo: StateAccepted, label: "accepted-withdraw"},
		{from: StateDeclined, event: EventAccept, wantOK: false, wantTo: StateDeclined, label: "declined-accept"},
		{from: StateExpired, event: EventExpire, wantOK: false, wantTo: StateExpired, label: "expired-expire"},
		{from: StateWithdrawn, event: EventWithdraw, wantOK: false, wantTo: StateWithdrawn, label: "withdrawn-withdraw"},
	}

	for _, tc := range cases {
		next, err := NextState(tc.from, tc.event)
		if tc.wantOK && err != nil {
			t.Fatalf("%s: NextState returned error: %v", tc.label, err)
		}
		if !tc.wantOK && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", tc.label, err)
		}
		if next != tc.wantTo {
			t.Fatalf("%s: NextState=%q want %q", tc.label, next, tc.wantTo)
		}
	}
}

func TestCreditRefundOnlyKeepsAcceptedSpent(t *testing.T) {
	want := map[RequestState]int{
		StatePending:   0,
		StateAccepted:  0,
		StateDeclined:  1,
		StateExpired:   1,
		StateWithdrawn: 1,
	}
	for state, refund := range want {
		if got := CreditRefund(state); got != refund {
			t.Fatalf("CreditRefund(%s)=%d want %d", state, got, refund)
		}
	}
}

func TestIsPastDeadlineBoundary(t *testing.T) {
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	req := &IntroductionRequest{CreatedAt: created, ExpiresAt: created.Add(IntroductionValidity)}

	if req.IsPastDeadline(req.ExpiresAt.Add(-time.Nanosecond)) {
		t.Fatal("expected request to be open just before the deadline")
	}
	if !req.IsPastDeadline(req.ExpiresAt) {
		t.Fatal("expected request to be closed exactly at the deadline")
	}
}

func TestParseRoleNormalizesCase(t *testing.T) {
	cases := map[string]Role{
		"PROFESSIONAL": RoleProfessional,
		"hr_partner":   RoleHrPartner,
		"HR-Partner":   RoleHrPartner,
		" Admin ":      RoleAdmin,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q)=%q want %q", raw, got, want)
		}
	}

	if _, err := ParseRole("recruiter"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestNewDualRoleRejectsAdmin(t *testing.T) {
	if _, err := NewDualRole(RoleAdmin, RoleProfessional); err == nil {
		t.Fatal("expected admin primary to be rejected")
	}
	if _, err := NewDualRole(RoleHrPartner, RoleAdmin); err == nil {
		t.Fatal("expected admin active role to be rejected")
	}
	d, err := NewDualRole(RoleHrPartner, RoleProfessional)
	if err != nil {
		t.Fatalf("NewDualRole error: %v", err)
	}
	if d.PrimaryRole() != RoleHrPartner || d.EffectiveRole() != RoleProfessional || !d.IsDual() {
		t.Fatalf("unexpected binding: %+v", d)
	}
}

func TestWithActiveRoleRequiresDualRole(t *testing.T) {
	single := Identity{PrincipalID: "p-1", Roles: NewSingleRole(RoleProfessional)}
	if _, err := single.WithActiveRole(RoleHrPartner); !errors.Is(err, ErrNotDualRole) {
		t.Fatalf("expected ErrNotDualRole, got %v", err)
	}

	binding, _ := NewDualRole(RoleHrPartner, RoleHrPartner)
	dual := Identity{PrincipalID: "p-2", CompanyID: "c-1", Roles: binding}
	switched, err := dual.WithActiveRole(RoleProfessional)
	if err != nil {
		t.Fatalf("WithActiveRole error: %v", err)
	}
	if active, _ := switched.ActiveRole(); active != RoleProfessional {
		t.Fatalf("active=%q want professional", active)
	}
	if dual.EffectiveRole() != RoleHrPartner {
		t.Fatal("expected original identity to be unchanged")
	}
}
