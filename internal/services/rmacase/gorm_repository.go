package rmacase

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// GormRepository persists cases through GORM. All statements are
// parameterized by the ORM; no raw string interpolation anywhere.
type GormRepository struct {
	db *database.DB
}

// NewGormRepository creates a repository on top of the shared connection.
func NewGormRepository(db *database.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ByTicket(ctx context.Context, ticketNumber string) (*models.RmaCase, error) {
	var c models.RmaCase
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("RepairDetail").
		Preload("ReturnDetail").
		Preload("StorageLocation").
		Where("ticket_number = ?", ticketNumber).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("case", ticketNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", ticketNumber, err)
	}
	return &c, nil
}

func (r *GormRepository) TicketExists(ctx context.Context, ticketNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RmaCase{}).
		Where("ticket_number = ?", ticketNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check ticket %s: %w", ticketNumber, err)
	}
	return count > 0, nil
}

func (r *GormRepository) Insert(ctx context.Context, c *models.RmaCase) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert case %s: %w", c.TicketNumber, err)
	}
	return nil
}

func (r *GormRepository) Save(ctx context.Context, c *models.RmaCase) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("save case %s: %w", c.TicketNumber, err)
	}
	return nil
}

// HardDelete removes the case and its owned sub-records in one
// transaction. The FK constraints cascade, but the explicit deletes keep
// MySQL installations without cascading FKs consistent too.
func (r *GormRepository) HardDelete(ctx context.Context, c *models.RmaCase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sub := range []interface{}{
			&models.Product{}, &models.RepairDetail{}, &models.ReturnDetail{}, &models.TrackingEvent{},
		} {
			if err := tx.Where("case_id = ?", c.ID).Delete(sub).Error; err != nil {
				return fmt.Errorf("delete sub-records of %s: %w", c.TicketNumber, err)
			}
		}
		if err := tx.Delete(&models.RmaCase{}, c.ID).Error; err != nil {
			return fmt.Errorf("delete case %s: %w", c.TicketNumber, err)
		}
		return nil
	})
}

func (r *GormRepository) List(ctx context.Context, set Set) ([]models.RmaCase, error) {
	q := r.db.WithContext(ctx).
		Preload("Products").
		Preload("StorageLocation")
	if set == SetArchived {
		q = q.Where("archived_at IS NOT NULL")
	} else {
		q = q.Where("archived_at IS NULL")
	}

	var cases []models.RmaCase
	if err := q.Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("list %s cases: %w", set, err)
	}
	return cases, nil
}

func (r *GormRepository) AppendTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("append tracking event: %w", err)
	}
	return nil
}

func (r *GormRepository) TrackingHistory(ctx context.Context, caseID uint) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("recorded_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load tracking history: %w", err)
	}
	return events, nil
}
