package rmacase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// Case lifecycle events published to the event sink.
const (
	EventCreated  = "case.created"
	EventUpdated  = "case.updated"
	EventArchived = "case.archived"
	EventRestored = "case.restored"
	EventDeleted  = "case.deleted"
)

// EventSink receives case lifecycle notifications. The WebSocket hub
// implements it; a nil sink disables publishing.
type EventSink interface {
	PublishCaseEvent(event string, c *models.RmaCase)
}

// Service enforces the case lifecycle rules on top of a Repository.
type Service struct {
	repo Repository
	sink EventSink
	now  func() time.Time
}

// NewService creates a lifecycle service. sink may be nil.
func NewService(repo Repository, sink EventSink) *Service {
	return &Service{repo: repo, sink: sink, now: time.Now}
}

// Create validates and inserts a new case into the active set. The ticket
// number must be unique across active and archived cases. EntryDate
// defaults to now when unset.
func (s *Service) Create(ctx context.Context, c *models.RmaCase) error {
	c.TicketNumber = strings.TrimSpace(c.TicketNumber)
	c.OrderNumber = strings.TrimSpace(c.OrderNumber)

	if c.TicketNumber == "" {
		return apperr.Validation("ticketNumber", "must not be blank")
	}
	if c.OrderNumber == "" {
		return apperr.Validation("orderNumber", "must not be blank")
	}
	if c.CaseType == "" {
		c.CaseType = models.CaseTypeRepair
	}
	if !models.ValidCaseType(c.CaseType) {
		return apperr.Validation("caseType", fmt.Sprintf("unknown case type %q", c.CaseType))
	}
	if c.Status == "" {
		c.Status = models.CaseStatusOpen
	}
	if !models.ValidCaseStatus(c.Status) {
		return apperr.Validation("status", fmt.Sprintf("unknown status %q", c.Status))
	}

	exists, err := s.repo.TicketExists(ctx, c.TicketNumber)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("ticketNumber", fmt.Sprintf("case %s already exists", c.TicketNumber))
	}

	if c.EntryDate.IsZero() {
		c.EntryDate = s.now()
	}
	c.ArchivedAt = nil

	if err := s.repo.Insert(ctx, c); err != nil {
		return err
	}

	if c.TrackingNumber != "" {
		s.appendTracking(ctx, c, "")
	}

	s.publish(EventCreated, c)
	return nil
}

// Patch carries a field-level update. Nil pointers leave the field
// untouched. Status transitions are unconstrained.
type Patch struct {
	OrderNumber       *string
	CaseType          *models.CaseType
	EntryDate         *time.Time
	Status            *models.CaseStatus
	StorageLocationID *uint
	ExitDate          *time.Time
	TrackingNumber    *string
	IsAmazon          *bool

	// Clear flags null the nullable columns and win over the value
	// pointers above. Clearing the exit date re-opens a closed case.
	ClearStorageLocation bool
	ClearExitDate        bool
	ClearTrackingNumber  bool
}

// Update applies a patch to the case with the given ticket number. A new
// tracking number appends to the tracking history instead of silently
// replacing the previous one.
func (s *Service) Update(ctx context.Context, ticketNumber string, p Patch) (*models.RmaCase, error) {
	c, err := s.repo.ByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}

	if p.OrderNumber != nil {
		trimmed := strings.TrimSpace(*p.OrderNumber)
		if trimmed == "" {
			return nil, apperr.Validation("orderNumber", "must not be blank")
		}
		c.OrderNumber = trimmed
	}
	if p.CaseType != nil {
		if !models.ValidCaseType(*p.CaseType) {
			return nil, apperr.Validation("caseType", fmt.Sprintf("unknown case type %q", *p.CaseType))
		}
		c.CaseType = *p.CaseType
	}
	if p.EntryDate != nil {
		c.EntryDate = *p.EntryDate
	}
	if p.Status != nil {
		if !models.ValidCaseStatus(*p.Status) {
			return nil, apperr.Validation("status", fmt.Sprintf("unknown status %q", *p.Status))
		}
		c.Status = *p.Status
	}
	if p.ClearStorageLocation {
		c.StorageLocationID = nil
	} else if p.StorageLocationID != nil {
		c.StorageLocationID = p.StorageLocationID
	}
	if p.ClearExitDate {
		c.ExitDate = nil
	} else if p.ExitDate != nil {
		c.ExitDate = p.ExitDate
	}
	if p.IsAmazon != nil {
		c.IsAmazon = *p.IsAmazon
	}

	previousTracking := c.TrackingNumber
	switch {
	case p.ClearTrackingNumber:
		c.TrackingNumber = ""
	case p.TrackingNumber != nil && *p.TrackingNumber != c.TrackingNumber:
		c.TrackingNumber = *p.TrackingNumber
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	if p.TrackingNumber != nil && c.TrackingNumber != previousTracking && c.TrackingNumber != "" {
		s.appendTracking(ctx, c, previousTracking)
	}

	s.publish(EventUpdated, c)
	return c, nil
}

// SoftDelete moves an active case into the archived set.
func (s *Service) SoftDelete(ctx context.Context, ticketNumber string) (*models.RmaCase, error) {
	c, err := s.repo.ByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if c.Archived() {
		return nil, apperr.NotFound("active case", ticketNumber)
	}

	now := s.now()
	c.ArchivedAt = &now
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.publish(EventArchived, c)
	return c, nil
}

// Restore moves an archived case back into the active set. Every other
// field keeps its value.
func (s *Service) Restore(ctx context.Context, ticketNumber string) (*models.RmaCase, error) {
	c, err := s.repo.ByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if !c.Archived() {
		return nil, apperr.NotFound("archived case", ticketNumber)
	}

	c.ArchivedAt = nil
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.publish(EventRestored, c)
	return c, nil
}

// PermanentDelete removes a case and its owned sub-records for good. Only
// archived cases qualify; the two-step archive-then-delete flow guards
// against accidental data loss.
func (s *Service) PermanentDelete(ctx context.Context, ticketNumber string) error {
	c, err := s.repo.ByTicket(ctx, ticketNumber)
	if err != nil {
		return err
	}
	if !c.Archived() {
		return apperr.InvalidState(fmt.Sprintf("case %s must be archived before permanent deletion", ticketNumber))
	}

	if err := s.repo.HardDelete(ctx, c); err != nil {
		return err
	}

	s.publish(EventDeleted, c)
	return nil
}

// Get returns one case from either set.
func (s *Service) Get(ctx context.Context, ticketNumber string) (*models.RmaCase, error) {
	return s.repo.ByTicket(ctx, ticketNumber)
}

// ListOptions control ordering. Zero value means ticket number ascending.
type ListOptions struct {
	SortKey    string
	Descending bool
}

var sortKeys = map[string]func(a, b *models.RmaCase) int{
	"ticket_number": func(a, b *models.RmaCase) int { return strings.Compare(a.TicketNumber, b.TicketNumber) },
	"order_number":  func(a, b *models.RmaCase) int { return strings.Compare(a.OrderNumber, b.OrderNumber) },
	"case_type":     func(a, b *models.RmaCase) int { return strings.Compare(string(a.CaseType), string(b.CaseType)) },
	"status":        func(a, b *models.RmaCase) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"entry_date":    func(a, b *models.RmaCase) int { return a.EntryDate.Compare(b.EntryDate) },
	"exit_date": func(a, b *models.RmaCase) int {
		switch {
		case a.ExitDate == nil && b.ExitDate == nil:
			return 0
		case a.ExitDate == nil:
			return -1
		case b.ExitDate == nil:
			return 1
		default:
			return a.ExitDate.Compare(*b.ExitDate)
		}
	},
}

// List returns one set ordered by the chosen column, ties broken by ticket
// number ascending.
func (s *Service) List(ctx context.Context, set Set, opts ListOptions) ([]models.RmaCase, error) {
	if !ValidSet(set) {
		return nil, apperr.Validation("set", fmt.Sprintf("unknown set %q", set))
	}
	if opts.SortKey == "" {
		opts.SortKey = "ticket_number"
	}
	cmp, ok := sortKeys[opts.SortKey]
	if !ok {
		return nil, apperr.Validation("sort", fmt.Sprintf("unknown sort key %q", opts.SortKey))
	}

	cases, err := s.repo.List(ctx, set)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cases, func(i, j int) bool {
		c := cmp(&cases[i], &cases[j])
		if opts.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return cases[i].TicketNumber < cases[j].TicketNumber
	})

	return cases, nil
}

// Search filters one set by a case-insensitive substring over ticket
// number, order number and product names. An empty term returns the full
// set in List's default order.
func (s *Service) Search(ctx context.Context, set Set, term string) ([]models.RmaCase, error) {
	cases, err := s.List(ctx, set, ListOptions{})
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return cases, nil
	}

	matched := make([]models.RmaCase, 0, len(cases))
	for _, c := range cases {
		if caseMatches(&c, term) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func caseMatches(c *models.RmaCase, term string) bool {
	if strings.Contains(strings.ToLower(c.TicketNumber), term) {
		return true
	}
	if strings.Contains(strings.ToLower(c.OrderNumber), term) {
		return true
	}
	for _, p := range c.Products {
		if strings.Contains(strings.ToLower(p.Name), term) {
			return true
		}
	}
	return false
}

// TrackingHistory returns the append-only tracking log of a case.
func (s *Service) TrackingHistory(ctx context.Context, ticketNumber string) ([]models.TrackingEvent, error) {
	c, err := s.repo.ByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.TrackingHistory(ctx, c.ID)
}

func (s *Service) appendTracking(ctx context.Context, c *models.RmaCase, previous string) {
	desc := "tracking number assigned"
	if previous != "" {
		desc = fmt.Sprintf("tracking number changed from %s", previous)
	}
	// A failed history append must not fail the case mutation itself.
	err := s.repo.AppendTrackingEvent(ctx, &models.TrackingEvent{
		CaseID:         c.ID,
		TrackingNumber: c.TrackingNumber,
		Status:         models.TrackingStatusLabelCreated,
		Description:    desc,
		RecordedAt:     s.now(),
	})
	if err != nil {
		log.Printf("⚠️ Failed to append tracking history for %s: %v", c.TicketNumber, err)
	}
}

func (s *Service) publish(event string, c *models.RmaCase) {
	if s.sink != nil {
		s.sink.PublishCaseEvent(event, c)
	}
}
