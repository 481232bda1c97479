package rmacase

import (
	"context"
	"sync"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// MemoryRepository keeps cases in a map. It backs the lifecycle tests and
// doubles as a scratch store for demos without a database.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID uint
	cases  map[string]*models.RmaCase
	events []models.TrackingEvent
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{cases: make(map[string]*models.RmaCase), nextID: 1}
}

func (r *MemoryRepository) ByTicket(_ context.Context, ticketNumber string) (*models.RmaCase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[ticketNumber]
	if !ok {
		return nil, apperr.NotFound("case", ticketNumber)
	}
	clone := *c
	return &clone, nil
}

func (r *MemoryRepository) TicketExists(_ context.Context, ticketNumber string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cases[ticketNumber]
	return ok, nil
}

func (r *MemoryRepository) Insert(_ context.Context, c *models.RmaCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	clone := *c
	r.cases[c.TicketNumber] = &clone
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, c *models.RmaCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.cases[c.TicketNumber] = &clone
	return nil
}

func (r *MemoryRepository) HardDelete(_ context.Context, c *models.RmaCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cases, c.TicketNumber)
	remaining := r.events[:0]
	for _, ev := range r.events {
		if ev.CaseID != c.ID {
			remaining = append(remaining, ev)
		}
	}
	r.events = remaining
	return nil
}

func (r *MemoryRepository) List(_ context.Context, set Set) ([]models.RmaCase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RmaCase, 0, len(r.cases))
	for _, c := range r.cases {
		if (set == SetArchived) == c.Archived() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) AppendTrackingEvent(_ context.Context, ev *models.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = uint(len(r.events) + 1)
	r.events = append(r.events, *ev)
	return nil
}

func (r *MemoryRepository) TrackingHistory(_ context.Context, caseID uint) ([]models.TrackingEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TrackingEvent
	for _, ev := range r.events {
		if ev.CaseID == caseID {
			out = append(out, ev)
		}
	}
	return out, nil
}
