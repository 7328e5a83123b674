// Package events fans introduction lifecycle events out to connected subscribers.
package events

import (
	"sync"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// Event is one introduction lifecycle change
type Event struct {
	Type           string              `json:"type"`
	RequestID      string              `json:"requestId"`
	CompanyID      string              `json:"companyId"`
	ProfessionalID string              `json:"professionalId"`
	State          domain.RequestState `json:"state"`
	At             time.Time           `json:"at"`
}

// NewEvent builds an event describing req after it entered its current state
func NewEvent(eventType string, req *domain.IntroductionRequest, at time.Time) Event {
	return Event{
		Type:           eventType,
		RequestID:      req.ID,
		CompanyID:      req.CompanyID,
		ProfessionalID: req.ProfessionalID,
		State:          req.State,
		At:             at.UTC(),
	}
}

// Audience selects which events a subscriber receives
type Audience struct {
	PrincipalID string
	CompanyID   string
	All         bool
}

func (a Audience) wants(e Event) bool {
	if a.All {
		return true
	}
	if a.PrincipalID != "" && e.ProfessionalID == a.PrincipalID {
		return true
	}
	return a.CompanyID != "" && e.CompanyID == a.CompanyID
}

// AudienceFor derives the audience of an identity
func AudienceFor(id domain.Identity) Audience {
	return Audience{PrincipalID: id.PrincipalID, CompanyID: id.CompanyID, All: id.IsAdmin()}
}

// Publisher accepts events
type Publisher interface {
	Publish(e Event)
}

// Hub is an in-process publisher. Slow subscribers drop events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]Audience
}

func NewHub() *Hub {
	return &Hub{subs: map[chan Event]Audience{}}
}

func (h *Hub) Subscribe(audience Audience, buffer int) chan Event {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = audience
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	if exists {
		delete(h.subs, ch)
	}
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, audience := range h.subs {
		if !audience.wants(e) {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
