package rmacase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), nil)
}

func mustCreate(t *testing.T, s *Service, ticket, order string, typ models.CaseType) *models.RmaCase {
	t.Helper()
	c := &models.RmaCase{TicketNumber: ticket, OrderNumber: order, CaseType: typ}
	if err := s.Create(context.Background(), c); err != nil {
		t.Fatalf("Create(%s) failed: %v", ticket, err)
	}
	return c
}

func TestCreateValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		c    models.RmaCase
	}{
		{"blank ticket", models.RmaCase{OrderNumber: "O-1"}},
		{"blank order", models.RmaCase{TicketNumber: "T-1"}},
		{"whitespace ticket", models.RmaCase{TicketNumber: "   ", OrderNumber: "O-1"}},
		{"bad type", models.RmaCase{TicketNumber: "T-1", OrderNumber: "O-1", CaseType: "melted"}},
		{"bad status", models.RmaCase{TicketNumber: "T-1", OrderNumber: "O-1", Status: "lost"}},
	}

	for _, tt := range tests {
		c := tt.c
		err := s.Create(ctx, &c)
		if !apperr.IsValidation(err) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
		}
	}
}

func TestCreateDuplicateTicket(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-100", "O-1", models.CaseTypeRepair)

	dup := &models.RmaCase{TicketNumber: "T-100", OrderNumber: "O-2"}
	if err := s.Create(ctx, dup); !apperr.IsValidation(err) {
		t.Fatalf("duplicate ticket: expected ValidationError, got %v", err)
	}

	// Duplicates are rejected against the archived set too.
	if _, err := s.SoftDelete(ctx, "T-100"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := s.Create(ctx, dup); !apperr.IsValidation(err) {
		t.Fatalf("duplicate against archived: expected ValidationError, got %v", err)
	}
}

func TestCreateDefaults(t *testing.T) {
	s := newTestService()

	c := mustCreate(t, s, "T-1", "O-1", "")
	if c.CaseType != models.CaseTypeRepair {
		t.Errorf("default case type: got %s, want repair", c.CaseType)
	}
	if c.Status != models.CaseStatusOpen {
		t.Errorf("default status: got %s, want open", c.Status)
	}
	if c.EntryDate.IsZero() {
		t.Error("entry date should default to now")
	}

	active, err := s.List(context.Background(), SetActive, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 1 || active[0].TicketNumber != "T-1" {
		t.Fatalf("new case should appear in active list, got %v", active)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-1", "O-1", models.CaseTypeRepair)

	status := models.CaseStatusCompleted
	updated, err := s.Update(ctx, "T-1", Patch{Status: &status})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != models.CaseStatusCompleted {
		t.Errorf("status not applied: got %s", updated.Status)
	}

	if _, err := s.Update(ctx, "T-404", Patch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing case: expected NotFound, got %v", err)
	}

	blank := "  "
	if _, err := s.Update(ctx, "T-1", Patch{OrderNumber: &blank}); !apperr.IsValidation(err) {
		t.Errorf("blank order patch: expected ValidationError, got %v", err)
	}
}

func TestUpdateClearFields(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-1", "O-1", models.CaseTypeRepair)

	loc := uint(3)
	exit := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	tracking := "00340000001"
	if _, err := s.Update(ctx, "T-1", Patch{
		StorageLocationID: &loc,
		ExitDate:          &exit,
		TrackingNumber:    &tracking,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Clear flags win over the value pointers and null the columns.
	updated, err := s.Update(ctx, "T-1", Patch{
		ExitDate:      &exit,
		ClearExitDate: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ExitDate != nil {
		t.Errorf("exit date not cleared: %v", *updated.ExitDate)
	}
	if updated.StorageLocationID == nil || *updated.StorageLocationID != loc {
		t.Errorf("storage location must survive an unrelated clear")
	}

	updated, err = s.Update(ctx, "T-1", Patch{
		ClearStorageLocation: true,
		ClearTrackingNumber:  true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.StorageLocationID != nil {
		t.Errorf("storage location not cleared: %d", *updated.StorageLocationID)
	}
	if updated.TrackingNumber != "" {
		t.Errorf("tracking number not cleared: %q", updated.TrackingNumber)
	}

	// Clearing the tracking number must not append to the history.
	history, err := s.TrackingHistory(ctx, "T-1")
	if err != nil {
		t.Fatalf("TrackingHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 tracking event, got %d", len(history))
	}
}

// historyFailingRepository simulates a store where the tracking history
// write fails while the case rows keep working.
type historyFailingRepository struct {
	*MemoryRepository
}

func (r *historyFailingRepository) AppendTrackingEvent(context.Context, *models.TrackingEvent) error {
	return errors.New("history table unavailable")
}

func TestHistoryFailureDoesNotFailMutation(t *testing.T) {
	s := NewService(&historyFailingRepository{NewMemoryRepository()}, nil)
	ctx := context.Background()

	mustCreate(t, s, "T-1", "O-1", models.CaseTypeRepair)

	tracking := "00340000001"
	updated, err := s.Update(ctx, "T-1", Patch{TrackingNumber: &tracking})
	if err != nil {
		t.Fatalf("Update must survive a history failure, got %v", err)
	}
	if updated.TrackingNumber != tracking {
		t.Errorf("tracking number not applied: %q", updated.TrackingNumber)
	}
}

func TestTrackingNumberAppendsHistory(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-1", "O-1", models.CaseTypeRepair)

	first := "00340000001"
	if _, err := s.Update(ctx, "T-1", Patch{TrackingNumber: &first}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := "00340000002"
	if _, err := s.Update(ctx, "T-1", Patch{TrackingNumber: &second}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	// Re-applying the same number must not grow the history.
	if _, err := s.Update(ctx, "T-1", Patch{TrackingNumber: &second}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	history, err := s.TrackingHistory(ctx, "T-1")
	if err != nil {
		t.Fatalf("TrackingHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 tracking events, got %d", len(history))
	}
	if history[0].TrackingNumber != first || history[1].TrackingNumber != second {
		t.Errorf("history order wrong: %+v", history)
	}

	c, _ := s.Get(ctx, "T-1")
	if c.TrackingNumber != second {
		t.Errorf("scalar tracking number: got %s, want %s", c.TrackingNumber, second)
	}
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	entry := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	c := &models.RmaCase{
		TicketNumber: "T-100",
		OrderNumber:  "O-1",
		CaseType:     models.CaseTypeRepair,
		EntryDate:    entry,
		Status:       models.CaseStatusInProgress,
		IsAmazon:     true,
	}
	if err := s.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	archived, err := s.SoftDelete(ctx, "T-100")
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if archived.ArchivedAt == nil {
		t.Fatal("ArchivedAt not set")
	}

	active, _ := s.List(ctx, SetActive, ListOptions{})
	if len(active) != 0 {
		t.Errorf("archived case still in active list")
	}
	archivedList, _ := s.List(ctx, SetArchived, ListOptions{})
	if len(archivedList) != 1 {
		t.Fatalf("case missing from archived list")
	}

	// Archiving twice is a NotFound on the active set.
	if _, err := s.SoftDelete(ctx, "T-100"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double archive: expected NotFound, got %v", err)
	}

	restored, err := s.Restore(ctx, "T-100")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.ArchivedAt != nil {
		t.Error("ArchivedAt not cleared")
	}
	if !restored.EntryDate.Equal(entry) || restored.Status != models.CaseStatusInProgress ||
		restored.OrderNumber != "O-1" || !restored.IsAmazon {
		t.Errorf("field values changed across archive/restore round trip: %+v", restored)
	}

	// Restoring an already-active case is a NotFound on the archived set.
	if _, err := s.Restore(ctx, "T-100"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double restore: expected NotFound, got %v", err)
	}
}

func TestPermanentDelete(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-100", "O-1", models.CaseTypeRepair)

	// Active cases cannot be deleted permanently.
	if err := s.PermanentDelete(ctx, "T-100"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("delete active: expected InvalidState, got %v", err)
	}
	if _, err := s.Get(ctx, "T-100"); err != nil {
		t.Fatalf("case should be unchanged after failed delete: %v", err)
	}

	if _, err := s.SoftDelete(ctx, "T-100"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := s.PermanentDelete(ctx, "T-100"); err != nil {
		t.Fatalf("PermanentDelete failed: %v", err)
	}

	if _, err := s.Get(ctx, "T-100"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted case still resolvable: %v", err)
	}
	for _, set := range []Set{SetActive, SetArchived} {
		list, _ := s.List(ctx, set, ListOptions{})
		if len(list) != 0 {
			t.Errorf("deleted case still in %s list", set)
		}
	}

	if err := s.PermanentDelete(ctx, "T-404"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing case: expected NotFound, got %v", err)
	}
}

func TestListSorting(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		ticket, order string
		entry         time.Time
	}{
		{"T-3", "O-2", base.AddDate(0, 0, 2)},
		{"T-1", "O-2", base.AddDate(0, 0, 1)},
		{"T-2", "O-1", base.AddDate(0, 0, 2)},
	} {
		c := &models.RmaCase{TicketNumber: tc.ticket, OrderNumber: tc.order, EntryDate: tc.entry}
		if err := s.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) failed: %v", tc.ticket, err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default ticket asc", ListOptions{}, []string{"T-1", "T-2", "T-3"}},
		{"entry date asc, ties by ticket", ListOptions{SortKey: "entry_date"}, []string{"T-1", "T-2", "T-3"}},
		{"entry date desc", ListOptions{SortKey: "entry_date", Descending: true}, []string{"T-2", "T-3", "T-1"}},
		{"order number asc, ties by ticket", ListOptions{SortKey: "order_number"}, []string{"T-2", "T-1", "T-3"}},
	}

	for _, tt := range tests {
		got, err := s.List(ctx, SetActive, tt.opts)
		if err != nil {
			t.Fatalf("%s: List failed: %v", tt.name, err)
		}
		for i, want := range tt.want {
			if got[i].TicketNumber != want {
				t.Errorf("%s: position %d: got %s, want %s", tt.name, i, got[i].TicketNumber, want)
			}
		}
	}

	if _, err := s.List(ctx, SetActive, ListOptions{SortKey: "favorite_color"}); !apperr.IsValidation(err) {
		t.Errorf("unknown sort key: expected ValidationError, got %v", err)
	}
	if _, err := s.List(ctx, "everything", ListOptions{}); !apperr.IsValidation(err) {
		t.Errorf("unknown set: expected ValidationError, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	repo := s.repo.(*MemoryRepository)

	mustCreate(t, s, "T-100", "302-555", models.CaseTypeRepair)
	mustCreate(t, s, "T-200", "305-777", models.CaseTypeRefund)

	// Attach a product so search can match on product names.
	c, _ := repo.ByTicket(ctx, "T-200")
	c.Products = []models.Product{{CaseID: c.ID, Name: "Smart Lock X1"}}
	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tests := []struct {
		term string
		want []string
	}{
		{"t-100", []string{"T-100"}},
		{"302", []string{"T-100"}},
		{"LOCK", []string{"T-200"}},
		{"nope", []string{}},
		{"T-", []string{"T-100", "T-200"}},
	}

	for _, tt := range tests {
		got, err := s.Search(ctx, SetActive, tt.term)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", tt.term, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q): got %d results, want %d", tt.term, len(got), len(tt.want))
			continue
		}
		for i, want := range tt.want {
			if got[i].TicketNumber != want {
				t.Errorf("Search(%q)[%d]: got %s, want %s", tt.term, i, got[i].TicketNumber, want)
			}
		}
	}
}

func TestSearchEmptyTermMatchesList(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, "T-2", "O-1", models.CaseTypeRepair)
	mustCreate(t, s, "T-1", "O-2", models.CaseTypeRepair)

	listed, err := s.List(ctx, SetActive, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	searched, err := s.Search(ctx, SetActive, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(listed) != len(searched) {
		t.Fatalf("length mismatch: list %d, search %d", len(listed), len(searched))
	}
	for i := range listed {
		if listed[i].TicketNumber != searched[i].TicketNumber {
			t.Errorf("position %d: list %s, search %s", i, listed[i].TicketNumber, searched[i].TicketNumber)
		}
	}
}
