package models

import (
	"time"

	"gorm.io/datatypes"
)

// Carrier represents a configured shipping provider.
type Carrier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	ProviderCode string    `gorm:"uniqueIndex;not null" json:"providerCode"`
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Carrier model
func (Carrier) TableName() string {
	return "carriers"
}

// Shipment status constants
const (
	ShipmentStatusDraft     = "draft"     // Not yet processed
	ShipmentStatusPending   = "pending"   // Queued for label creation
	ShipmentStatusShipped   = "shipped"   // Label created, parcel on the way
	ShipmentStatusDelivered = "delivered" // Delivered
	ShipmentStatusError     = "error"     // Provider call failed
	ShipmentStatusCancelled = "cancelled" // Cancelled at the carrier
)

// Shipment links a case to a carrier label. The worker picks up pending
// rows, calls the provider and stores the label plus the raw response.
type Shipment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CaseID         uint           `gorm:"not null;index" json:"caseId"`
	CarrierID      *uint          `gorm:"index" json:"carrierId,omitempty"`
	TrackingNumber string         `gorm:"index" json:"trackingNumber"`
	Status         string         `gorm:"index;default:draft" json:"status"`
	ErrorMessage   string         `gorm:"type:text" json:"errorMessage"`
	Weight         float64        `json:"weight"`
	Reference      string         `json:"reference"`
	LabelData      []byte         `json:"-"`
	RawResponse    datatypes.JSON `json:"rawResponse,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	ShippedAt      *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`

	// Relations
	Case    *RmaCase `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	Carrier *Carrier `gorm:"foreignKey:CarrierID" json:"carrier,omitempty"`
}

// TableName specifies the table name for Shipment model
func (Shipment) TableName() string {
	return "shipments"
}

// ShipmentAddress is the receiver address captured for a shipment request.
// Stored separately so the case itself carries no address data.
type ShipmentAddress struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ShipmentID  uint   `gorm:"uniqueIndex;not null" json:"shipmentId"`
	Name        string `gorm:"not null" json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
	Country     string `gorm:"default:DE" json:"country"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// TableName specifies the table name for ShipmentAddress model
func (ShipmentAddress) TableName() string {
	return "shipment_addresses"
}
