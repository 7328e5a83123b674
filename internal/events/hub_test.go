package events

import (
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

func TestHubRoutesByAudience(t *testing.T) {
	hub := NewHub()
	pro := hub.Subscribe(Audience{PrincipalID: "p-1"}, 4)
	company := hub.Subscribe(Audience{CompanyID: "c-1"}, 4)
	admin := hub.Subscribe(Audience{All: true}, 4)
	other := hub.Subscribe(Audience{PrincipalID: "p-2", CompanyID: "c-2"}, 4)

	req := &domain.IntroductionRequest{ID: "r-1", CompanyID: "c-1", ProfessionalID: "p-1", State: domain.StatePending}
	hub.Publish(NewEvent("introduction.created", req, time.Now()))

	for name, ch := range map[string]chan Event{"professional": pro, "company": company, "admin": admin} {
		select {
		case e := <-ch:
			if e.RequestID != "r-1" || e.State != domain.StatePending {
				t.Fatalf("%s got unexpected event %+v", name, e)
			}
		default:
			t.Fatalf("%s did not receive the event", name)
		}
	}
	select {
	case e := <-other:
		t.Fatalf("unrelated subscriber received %+v", e)
	default:
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(Audience{All: true}, 1)
	req := &domain.IntroductionRequest{ID: "r-1"}

	hub.Publish(NewEvent("a", req, time.Now()))
	hub.Publish(NewEvent("b", req, time.Now()))

	if e := <-ch; e.Type != "a" {
		t.Fatalf("first event=%s want a", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("expected second event to be dropped, got %+v", e)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(Audience{All: true}, 1)
	hub.Unsubscribe(ch)
	hub.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("subscribers=%d want 0", hub.Subscribers())
	}
}
