package models

import (
	"time"
)

// CaseType classifies why a unit came back.
type CaseType string

const (
	CaseTypeRepair      CaseType = "repair"
	CaseTypeWithdrawal  CaseType = "withdrawal"
	CaseTypeReplacement CaseType = "replacement"
	CaseTypeRefund      CaseType = "refund"
	CaseTypeOther       CaseType = "other"
)

// ValidCaseType reports whether t is one of the known case types.
func ValidCaseType(t CaseType) bool {
	switch t {
	case CaseTypeRepair, CaseTypeWithdrawal, CaseTypeReplacement, CaseTypeRefund, CaseTypeOther:
		return true
	}
	return false
}

// CaseStatus tracks processing progress. Transitions are unconstrained;
// operators move cases freely between statuses.
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "open"
	CaseStatusInProgress CaseStatus = "in_progress"
	CaseStatusCompleted  CaseStatus = "completed"
)

// ValidCaseStatus reports whether s is a known status.
func ValidCaseStatus(s CaseStatus) bool {
	switch s {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusCompleted:
		return true
	}
	return false
}

// RmaCase is the central record: one return/repair case identified by the
// helpdesk ticket number. Archived cases keep their rows; ArchivedAt nil
// means the case is in the active set.
type RmaCase struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	TicketNumber      string     `gorm:"uniqueIndex;not null" json:"ticketNumber"`
	OrderNumber       string     `gorm:"not null;index" json:"orderNumber"`
	CaseType          CaseType   `gorm:"not null;index;default:'repair'" json:"caseType"`
	EntryDate         time.Time  `gorm:"not null" json:"entryDate"`
	Status            CaseStatus `gorm:"index;default:'open'" json:"status"`
	StorageLocationID *uint      `gorm:"index" json:"storageLocationId,omitempty"`
	ExitDate          *time.Time `json:"exitDate,omitempty"`
	TrackingNumber    string     `gorm:"index" json:"trackingNumber"`
	IsAmazon          bool       `gorm:"default:false" json:"isAmazon"`
	ArchivedAt        *time.Time `gorm:"index" json:"archivedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations. Sub-records live and die with their case.
	StorageLocation *StorageLocation `gorm:"foreignKey:StorageLocationID" json:"storageLocation,omitempty"`
	Products        []Product        `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	RepairDetail    *RepairDetail    `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"repairDetail,omitempty"`
	ReturnDetail    *ReturnDetail    `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"returnDetail,omitempty"`
	TrackingEvents  []TrackingEvent  `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"trackingEvents,omitempty"`
}

// TableName specifies the table name for RmaCase model
func (RmaCase) TableName() string {
	return "rma_cases"
}

// Archived reports whether the case sits in the archived set.
func (c *RmaCase) Archived() bool {
	return c.ArchivedAt != nil
}

// Product is a returned unit attached to a case.
type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CaseID       uint      `gorm:"not null;index" json:"caseId"`
	Name         string    `gorm:"not null;index" json:"name"`
	SerialNumber string    `gorm:"index" json:"serialNumber"`
	Quantity     int       `gorm:"default:1" json:"quantity"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "rma_products"
}

// RepairDetail holds the diagnosis side of a repair case.
type RepairDetail struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	CaseID              uint      `gorm:"uniqueIndex;not null" json:"caseId"`
	CustomerDescription string    `gorm:"type:text" json:"customerDescription"`
	ProblemCauseID      *uint     `gorm:"index" json:"problemCauseId,omitempty"`
	LastHandlerID       *uint     `gorm:"index" json:"lastHandlerId,omitempty"`
	LastAction          string    `gorm:"type:text" json:"lastAction"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`

	ProblemCause *ProblemCause `gorm:"foreignKey:ProblemCauseID" json:"problemCause,omitempty"`
	LastHandler  *Handler      `gorm:"foreignKey:LastHandlerID" json:"lastHandler,omitempty"`
}

// TableName specifies the table name for RepairDetail model
func (RepairDetail) TableName() string {
	return "rma_repair_details"
}

// ReturnDetail holds the return side of a withdrawal/refund case.
type ReturnDetail struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CaseID        uint      `gorm:"uniqueIndex;not null" json:"caseId"`
	Reason        string    `gorm:"type:text" json:"reason"`
	LastHandlerID *uint     `gorm:"index" json:"lastHandlerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	LastHandler *Handler `gorm:"foreignKey:LastHandlerID" json:"lastHandler,omitempty"`
}

// TableName specifies the table name for ReturnDetail model
func (ReturnDetail) TableName() string {
	return "rma_return_details"
}

// TrackingEvent is one row of the append-only tracking history of a case.
// Overwriting the scalar tracking number on the case loses the old value;
// every assignment also appends here so reused numbers stay auditable.
type TrackingEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CaseID         uint      `gorm:"not null;index" json:"caseId"`
	TrackingNumber string    `gorm:"not null;index" json:"trackingNumber"`
	Carrier        string    `json:"carrier"`
	Status         string    `json:"status"`
	StatusCode     string    `json:"statusCode"`
	Description    string    `gorm:"type:text" json:"description"`
	RecordedAt     time.Time `gorm:"not null" json:"recordedAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TableName specifies the table name for TrackingEvent model
func (TrackingEvent) TableName() string {
	return "rma_tracking_events"
}

// Normalized tracking statuses, mapped from carrier-specific codes.
const (
	TrackingStatusLabelCreated = "label_created"
	TrackingStatusInTransit    = "in_transit"
	TrackingStatusDelivered    = "delivered"
	TrackingStatusNeighbor     = "delivered_to_neighbor"
	TrackingStatusUnknown      = "unknown"
)
