package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// Column headers of the legacy spreadsheet export. The sheet is German
// and the headers carry their original typos, so they are matched
// verbatim.
const (
	colTicket          = "Ticketnr."
	colAmazonOrder     = "Amazon Bestellnr."
	colEntryDate       = "Eingang"
	colExitDate        = "Ausgang"
	colTracking        = "Tracking"
	colProduct         = "Hauptrodukt"
	colSerial          = "Seriennumer"
	colProblem         = "Problembeschreibung vom Kunden"
	colLastHandler     = "letzter Bearbeiter"
	colLastAction      = "letzte Aktion"
	colStorageLocation = "Lagerort"
)

// lastActionTranslations maps the sheet's German action values to the
// English terms stored in the database.
var lastActionTranslations = map[string]string{
	"eingang erfasst": "Entry recorded",
	"reparatur":       "Repair",
	"nicht reparabel": "Not repairable",
	"rückzahlung":     "Refund",
	"austausch":       "Exchange",
	"widerruf":        "Cancelled",
}

// Summary reports what an import run did.
type Summary struct {
	Created  int
	Updated  int
	Skipped  int
	Warnings []string
}

// Service imports the legacy spreadsheet export into the case tables.
type Service struct {
	db *database.DB
}

func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// ImportFile reads the CSV at path and upserts its rows in a single
// transaction. A row-level problem is recorded as a warning, not a
// failure; only structural errors abort the run.
func (s *Service) ImportFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// Import reads CSV data from r and upserts its rows.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colTicket, colEntryDate, colProduct} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	summary := &Summary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		handlers, err := loadHandlers(tx)
		if err != nil {
			return err
		}
		locations, err := loadStorageLocations(tx)
		if err != nil {
			return err
		}

		line := 1
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read csv line %d: %w", line+1, err)
			}
			line++

			row := func(col string) string {
				idx, ok := columns[col]
				if !ok || idx >= len(record) {
					return ""
				}
				return strings.TrimSpace(record[idx])
			}

			if err := s.importRow(tx, row, handlers, locations, summary, line); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) importRow(tx *gorm.DB, row func(string) string, handlers []models.Handler, locations []models.StorageLocation, summary *Summary, line int) error {
	order := row(colAmazonOrder)
	ticket := row(colTicket)
	if ticket == "" && order != "" {
		ticket = "AMZ" + order
	}
	if ticket == "" {
		summary.Skipped++
		summary.warnf("line %d: no ticket number, skipped", line)
		return nil
	}

	entryDate, ok := parseDate(row(colEntryDate))
	if !ok {
		summary.warnf("line %d: invalid entry date %q", line, row(colEntryDate))
	}
	exitDate, ok := parseDate(row(colExitDate))
	if !ok {
		summary.warnf("line %d: invalid exit date %q", line, row(colExitDate))
	}

	lastAction, known := translateLastAction(row(colLastAction))
	if !known {
		summary.warnf("line %d: unknown action %q stored as empty", line, row(colLastAction))
	}

	c := models.RmaCase{
		TicketNumber:   ticket,
		OrderNumber:    order,
		CaseType:       models.CaseTypeRepair,
		Status:         deriveStatus(exitDate, lastAction),
		ExitDate:       exitDate,
		TrackingNumber: row(colTracking),
		IsAmazon:       order != "",
	}
	if entryDate != nil {
		c.EntryDate = *entryDate
	} else {
		c.EntryDate = time.Now()
	}
	if id := resolveStorageLocation(locations, row(colStorageLocation)); id != nil {
		c.StorageLocationID = id
	} else if row(colStorageLocation) != "" {
		summary.warnf("line %d: unknown storage location %q", line, row(colStorageLocation))
	}

	var existing models.RmaCase
	err := tx.Where("ticket_number = ?", ticket).First(&existing).Error
	switch {
	case err == nil:
		existing.EntryDate = c.EntryDate
		existing.Status = c.Status
		existing.ExitDate = c.ExitDate
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("update case %s: %w", ticket, err)
		}
		summary.Updated++
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return fmt.Errorf("lookup case %s: %w", ticket, err)
	}

	if err := tx.Create(&c).Error; err != nil {
		return fmt.Errorf("create case %s: %w", ticket, err)
	}

	if name := row(colProduct); name != "" {
		product := models.Product{
			CaseID:       c.ID,
			Name:         name,
			SerialNumber: row(colSerial),
			Quantity:     1,
		}
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("create product for %s: %w", ticket, err)
		}
	}

	detail := models.RepairDetail{
		CaseID:              c.ID,
		CustomerDescription: row(colProblem),
		LastHandlerID:       resolveHandler(handlers, row(colLastHandler)),
		LastAction:          lastAction,
	}
	if detail.LastHandlerID == nil && row(colLastHandler) != "" {
		summary.warnf("line %d: unknown handler %q", line, row(colLastHandler))
	}
	if err := tx.Create(&detail).Error; err != nil {
		return fmt.Errorf("create repair detail for %s: %w", ticket, err)
	}

	summary.Created++
	return nil
}

func (s *Summary) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.Warnings = append(s.Warnings, msg)
	log.Printf("import: %s", msg)
}

// parseDate reads a DD.MM.YYYY sheet date. A blank cell or the "-"
// placeholder yields nil with ok=true; a malformed date yields ok=false.
func parseDate(value string) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return nil, true
	}
	t, err := time.Parse("02.01.2006", value)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// translateLastAction maps a German action value to its stored English
// form. Unknown values come back empty with known=false.
func translateLastAction(action string) (string, bool) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return "", true
	}
	translated, ok := lastActionTranslations[action]
	if !ok {
		return "", false
	}
	return translated, true
}

// deriveStatus marks a row completed once it has left the building: an
// exit date or a refund closes the case, everything else stays open.
func deriveStatus(exitDate *time.Time, lastAction string) models.CaseStatus {
	if exitDate != nil || lastAction == "Refund" {
		return models.CaseStatusCompleted
	}
	return models.CaseStatusOpen
}

// resolveHandler matches a sheet value against handler initials first,
// then against the full name.
func resolveHandler(handlers []models.Handler, value string) *uint {
	value = strings.Trim(strings.TrimSpace(value), "'")
	if value == "" {
		return nil
	}
	for i := range handlers {
		if handlers[i].Initials == value {
			return &handlers[i].ID
		}
	}
	for i := range handlers {
		if handlers[i].Name == value {
			return &handlers[i].ID
		}
	}
	return nil
}

func resolveStorageLocation(locations []models.StorageLocation, name string) *uint {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range locations {
		if locations[i].LocationName == name {
			return &locations[i].ID
		}
	}
	return nil
}

func loadHandlers(tx *gorm.DB) ([]models.Handler, error) {
	var handlers []models.Handler
	if err := tx.Find(&handlers).Error; err != nil {
		return nil, fmt.Errorf("load handlers: %w", err)
	}
	return handlers, nil
}

func loadStorageLocations(tx *gorm.DB) ([]models.StorageLocation, error) {
	var locations []models.StorageLocation
	if err := tx.Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("load storage locations: %w", err)
	}
	return locations, nil
}
