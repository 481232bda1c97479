package rmacase

import (
	"context"

	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// Set selects the active or archived view of the case table.
type Set string

const (
	SetActive   Set = "active"
	SetArchived Set = "archived"
)

// ValidSet reports whether s is a known set selector.
func ValidSet(s Set) bool {
	return s == SetActive || s == SetArchived
}

// Repository abstracts case persistence. ByTicket looks across both sets;
// List returns one set with products preloaded so search can match on
// product names.
type Repository interface {
	ByTicket(ctx context.Context, ticketNumber string) (*models.RmaCase, error)
	TicketExists(ctx context.Context, ticketNumber string) (bool, error)
	Insert(ctx context.Context, c *models.RmaCase) error
	Save(ctx context.Context, c *models.RmaCase) error
	HardDelete(ctx context.Context, c *models.RmaCase) error
	List(ctx context.Context, set Set) ([]models.RmaCase, error)
	AppendTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error
	TrackingHistory(ctx context.Context, caseID uint) ([]models.TrackingEvent, error)
}
