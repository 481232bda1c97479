package delivery

import (
	"context"
	"time"
)

// Address represents a physical address for shipping
type Address struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
	Country     string `json:"country"` // ISO code, e.g. "DEU"
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// Parcel represents a single package in a shipment
type Parcel struct {
	Weight      float64 `json:"weight"` // kg
	Description string  `json:"description"`
}

// ShipmentRequest contains all data needed to create a label
type ShipmentRequest struct {
	Reference       string  `json:"reference"` // Case ticket number
	SenderAddress   Address `json:"senderAddress"`
	ReceiverAddress Address `json:"receiverAddress"`
	Parcel          Parcel  `json:"parcel"`
	ValidateOnly    bool    `json:"validateOnly"` // Dry run against the carrier validator
}

// ShipmentResponse contains the result from the carrier
type ShipmentResponse struct {
	TrackingNumber string                 `json:"trackingNumber"`
	LabelPDF       []byte                 `json:"labelPDF,omitempty"`
	LabelURL       string                 `json:"labelURL,omitempty"`
	RawResponse    map[string]interface{} `json:"rawResponse,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// TrackingStatus represents the current state of a shipment
type TrackingStatus struct {
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`     // normalized (models.TrackingStatus*)
	StatusCode     string          `json:"statusCode"` // carrier-specific code
	Location       string          `json:"location"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Events         []TrackingEvent `json:"events"`
}

// TrackingEvent is one entry of the carrier's event history
type TrackingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	StatusCode  string    `json:"statusCode"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// Provider is the contract every carrier integration fulfills. Clients do
// not retry; callers decide whether a failure is worth retrying.
type Provider interface {
	// Code returns the unique code for this provider (e.g. "dhl")
	Code() string

	// Name returns the human-readable carrier name
	Name() string

	// CreateShipment creates a label and returns tracking information
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// CancelShipment cancels an existing shipment
	CancelShipment(ctx context.Context, trackingNumber string) error

	// GetStatus retrieves the current status of a shipment
	GetStatus(ctx context.Context, trackingNumber string) (*TrackingStatus, error)

	// ValidateAddress returns nil when the carrier can ship to addr
	ValidateAddress(ctx context.Context, addr *Address) error
}
