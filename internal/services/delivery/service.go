package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// Service handles shipment creation and tracking refresh for cases
type Service struct {
	db       *database.DB
	registry *delivery.Registry
}

// NewService creates a new shipment service
func NewService(db *database.DB, registry *delivery.Registry) *Service {
	return &Service{db: db, registry: registry}
}

// ShipmentInput is what an operator submits to request a return label.
type ShipmentInput struct {
	ProviderCode string           `json:"providerCode"`
	Weight       float64          `json:"weight"`
	Sender       delivery.Address `json:"sender"`
	Receiver     delivery.Address `json:"receiver"`
}

// RequestShipment queues a shipment for a case. The background worker
// performs the actual carrier call.
func (s *Service) RequestShipment(ctx context.Context, c *models.RmaCase, in ShipmentInput) (*models.Shipment, error) {
	if !s.registry.Has(in.ProviderCode) {
		return nil, apperr.Validation("providerCode", fmt.Sprintf("unknown carrier %q", in.ProviderCode))
	}

	var carrier models.Carrier
	err := s.db.WithContext(ctx).
		Where("provider_code = ? AND active = ?", in.ProviderCode, true).
		First(&carrier).Error
	if err != nil {
		return nil, fmt.Errorf("carrier %s not configured or inactive: %w", in.ProviderCode, apperr.ErrNotFound)
	}

	shipment := models.Shipment{
		CaseID:    c.ID,
		CarrierID: &carrier.ID,
		Status:    models.ShipmentStatusPending,
		Weight:    in.Weight,
		Reference: c.TicketNumber,
	}
	if err := s.db.WithContext(ctx).Create(&shipment).Error; err != nil {
		return nil, fmt.Errorf("create shipment record: %w", err)
	}

	addr := models.ShipmentAddress{
		ShipmentID:  shipment.ID,
		Name:        in.Receiver.Name,
		Street:      in.Receiver.Street,
		HouseNumber: in.Receiver.HouseNumber,
		Zip:         in.Receiver.Zip,
		City:        in.Receiver.City,
		Country:     in.Receiver.Country,
		Email:       in.Receiver.Email,
		Phone:       in.Receiver.Phone,
	}
	if err := s.db.WithContext(ctx).Create(&addr).Error; err != nil {
		return nil, fmt.Errorf("store shipment address: %w", err)
	}

	return &shipment, nil
}

// ProcessPendingShipments creates labels for all queued shipments. Called
// by the background worker; individual failures mark the row and move on.
func (s *Service) ProcessPendingShipments(ctx context.Context) error {
	var pending []models.Shipment
	err := s.db.WithContext(ctx).
		Preload("Case").
		Preload("Carrier").
		Where("status = ?", models.ShipmentStatusPending).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("fetch pending shipments: %w", err)
	}

	for i := range pending {
		if err := s.processShipment(ctx, &pending[i]); err != nil {
			log.Printf("shipment %d: %v", pending[i].ID, err)
		}
	}
	return nil
}

func (s *Service) processShipment(ctx context.Context, shipment *models.Shipment) error {
	if shipment.Carrier == nil {
		return s.markError(ctx, shipment, "shipment has no carrier")
	}

	provider, err := s.registry.Get(shipment.Carrier.ProviderCode)
	if err != nil {
		return s.markError(ctx, shipment, err.Error())
	}

	var addr models.ShipmentAddress
	if err := s.db.WithContext(ctx).Where("shipment_id = ?", shipment.ID).First(&addr).Error; err != nil {
		return s.markError(ctx, shipment, fmt.Sprintf("shipment address missing: %v", err))
	}

	req := &delivery.ShipmentRequest{
		Reference: shipment.Reference,
		ReceiverAddress: delivery.Address{
			Name:        addr.Name,
			Street:      addr.Street,
			HouseNumber: addr.HouseNumber,
			Zip:         addr.Zip,
			City:        addr.City,
			Country:     addr.Country,
			Email:       addr.Email,
			Phone:       addr.Phone,
		},
		Parcel: delivery.Parcel{Weight: shipment.Weight},
	}

	resp, err := provider.CreateShipment(ctx, req)
	if err != nil {
		return s.markError(ctx, shipment, err.Error())
	}

	now := time.Now()
	shipment.TrackingNumber = resp.TrackingNumber
	shipment.Status = models.ShipmentStatusShipped
	shipment.ErrorMessage = ""
	shipment.LabelData = resp.LabelPDF
	shipment.ShippedAt = &now
	if resp.RawResponse != nil {
		if raw, err := json.Marshal(resp.RawResponse); err == nil {
			shipment.RawResponse = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Save(shipment).Error; err != nil {
		return fmt.Errorf("save shipment %d: %w", shipment.ID, err)
	}

	// Propagate the tracking number onto the case and its history. The
	// label is already stored, so failures here are logged, not fatal.
	if shipment.Case != nil {
		err := s.db.WithContext(ctx).Model(&models.RmaCase{}).
			Where("id = ?", shipment.CaseID).
			Update("tracking_number", resp.TrackingNumber).Error
		if err != nil {
			log.Printf("⚠️ Failed to propagate tracking number to case %d: %v", shipment.CaseID, err)
		}
		err = s.db.WithContext(ctx).Create(&models.TrackingEvent{
			CaseID:         shipment.CaseID,
			TrackingNumber: resp.TrackingNumber,
			Carrier:        shipment.Carrier.ProviderCode,
			Status:         models.TrackingStatusLabelCreated,
			Description:    "label created",
			RecordedAt:     now,
		}).Error
		if err != nil {
			log.Printf("⚠️ Failed to append tracking history for case %d: %v", shipment.CaseID, err)
		}
	}
	return nil
}

func (s *Service) markError(ctx context.Context, shipment *models.Shipment, msg string) error {
	shipment.Status = models.ShipmentStatusError
	shipment.ErrorMessage = msg
	if err := s.db.WithContext(ctx).Save(shipment).Error; err != nil {
		return fmt.Errorf("mark shipment %d failed: %w", shipment.ID, err)
	}
	return fmt.Errorf("shipment %d failed: %s", shipment.ID, msg)
}

// RefreshTracking polls the carrier for every shipped parcel and appends
// new tracking events to the case history.
func (s *Service) RefreshTracking(ctx context.Context) error {
	var active []models.Shipment
	err := s.db.WithContext(ctx).
		Preload("Carrier").
		Where("status = ? AND tracking_number <> ''", models.ShipmentStatusShipped).
		Find(&active).Error
	if err != nil {
		return fmt.Errorf("fetch active shipments: %w", err)
	}

	for i := range active {
		if err := s.refreshShipment(ctx, &active[i]); err != nil {
			log.Printf("tracking refresh %s: %v", active[i].TrackingNumber, err)
		}
	}
	return nil
}

func (s *Service) refreshShipment(ctx context.Context, shipment *models.Shipment) error {
	if shipment.Carrier == nil {
		return nil
	}
	provider, err := s.registry.Get(shipment.Carrier.ProviderCode)
	if err != nil {
		return err
	}

	status, err := provider.GetStatus(ctx, shipment.TrackingNumber)
	if err != nil {
		return err
	}

	if status.Status == models.TrackingStatusDelivered || status.Status == models.TrackingStatusNeighbor {
		now := time.Now()
		shipment.Status = models.ShipmentStatusDelivered
		shipment.DeliveredAt = &now
		if err := s.db.WithContext(ctx).Save(shipment).Error; err != nil {
			return fmt.Errorf("save shipment %d: %w", shipment.ID, err)
		}
	}

	// Append only events newer than the last recorded one.
	var last models.TrackingEvent
	var since time.Time
	err = s.db.WithContext(ctx).
		Where("case_id = ? AND tracking_number = ?", shipment.CaseID, shipment.TrackingNumber).
		Order("recorded_at DESC").
		First(&last).Error
	if err == nil {
		since = last.RecordedAt
	}

	for _, ev := range status.Events {
		if !ev.Timestamp.After(since) {
			continue
		}
		createErr := s.db.WithContext(ctx).Create(&models.TrackingEvent{
			CaseID:         shipment.CaseID,
			TrackingNumber: shipment.TrackingNumber,
			Carrier:        shipment.Carrier.ProviderCode,
			Status:         ev.Status,
			StatusCode:     ev.StatusCode,
			Description:    ev.Description,
			RecordedAt:     ev.Timestamp,
		}).Error
		if createErr != nil {
			log.Printf("⚠️ Failed to append tracking history for case %d: %v", shipment.CaseID, createErr)
		}
	}
	return nil
}

// LabelPDF returns the stored label for a shipment.
func (s *Service) LabelPDF(ctx context.Context, shipmentID uint) ([]byte, error) {
	var shipment models.Shipment
	if err := s.db.WithContext(ctx).First(&shipment, shipmentID).Error; err != nil {
		return nil, apperr.NotFound("shipment", fmt.Sprintf("%d", shipmentID))
	}
	if len(shipment.LabelData) == 0 {
		return nil, apperr.NotFound("shipment label", fmt.Sprintf("%d", shipmentID))
	}
	return shipment.LabelData, nil
}
