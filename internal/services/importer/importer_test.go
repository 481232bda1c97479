package importer

import (
	"testing"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/models"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"24.12.2023", "2023-12-24", true},
		{" 01.02.2024 ", "2024-02-01", true},
		{"", "", true},
		{"-", "", true},
		{"2023-12-24", "", false},
		{"32.01.2024", "", false},
	}

	for _, tt := range tests {
		got, ok := parseDate(tt.input)
		if ok != tt.wantOK {
			t.Errorf("parseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("parseDate(%q) = %v, want nil", tt.input, got)
			}
			continue
		}
		if got == nil || got.Format("2006-01-02") != tt.want {
			t.Errorf("parseDate(%q) = %v, want %s", tt.input, got, tt.want)
		}
	}
}

func TestTranslateLastAction(t *testing.T) {
	tests := []struct {
		input     string
		want      string
		wantKnown bool
	}{
		{"Reparatur", "Repair", true},
		{"rückzahlung", "Refund", true},
		{"  Eingang erfasst  ", "Entry recorded", true},
		{"Widerruf", "Cancelled", true},
		{"", "", true},
		{"irgendwas", "", false},
	}

	for _, tt := range tests {
		got, known := translateLastAction(tt.input)
		if got != tt.want || known != tt.wantKnown {
			t.Errorf("translateLastAction(%q) = (%q, %v), want (%q, %v)",
				tt.input, got, known, tt.want, tt.wantKnown)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	exit := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := deriveStatus(&exit, ""); got != models.CaseStatusCompleted {
		t.Errorf("exit date present: status = %s, want completed", got)
	}
	if got := deriveStatus(nil, "Refund"); got != models.CaseStatusCompleted {
		t.Errorf("refund: status = %s, want completed", got)
	}
	if got := deriveStatus(nil, "Repair"); got != models.CaseStatusOpen {
		t.Errorf("repair in progress: status = %s, want open", got)
	}
	if got := deriveStatus(nil, ""); got != models.CaseStatusOpen {
		t.Errorf("no signal: status = %s, want open", got)
	}
}

func TestResolveHandler(t *testing.T) {
	handlers := []models.Handler{
		{ID: 1, Initials: "MM", Name: "Max Mustermann"},
		{ID: 2, Initials: "AB", Name: "Anna Beispiel"},
	}

	if got := resolveHandler(handlers, "AB"); got == nil || *got != 2 {
		t.Errorf("initials lookup = %v, want 2", got)
	}
	if got := resolveHandler(handlers, "Max Mustermann"); got == nil || *got != 1 {
		t.Errorf("name lookup = %v, want 1", got)
	}
	if got := resolveHandler(handlers, "'MM'"); got == nil || *got != 1 {
		t.Errorf("quoted initials lookup = %v, want 1", got)
	}
	if got := resolveHandler(handlers, "ZZ"); got != nil {
		t.Errorf("unknown handler = %v, want nil", got)
	}
	if got := resolveHandler(handlers, ""); got != nil {
		t.Errorf("blank handler = %v, want nil", got)
	}
}
