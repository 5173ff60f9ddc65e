package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

func (r *GormBillRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	})
}

// FindByID finds a bill with its items, returning nil if absent
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Bill, error) {
	var model models.BillModel
	if err := r.withItems(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBooking lists the bills of a booking ordered by due date
func (r *GormBillRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*booking.Bill, error) {
	var rows []models.BillModel
	if err := r.withItems(ctx).
		Where("booking_id = ?", bookingID).
		Order("due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	bills := make([]*booking.Bill, len(rows))
	for i := range rows {
		bills[i] = rows[i].ToDomain()
	}
	return bills, nil
}

// SaveAll inserts or updates bills and replaces their items
func (r *GormBillRepository) SaveAll(ctx context.Context, bills []*booking.Bill) error {
	db := r.db.WithContext(ctx)
	for _, b := range bills {
		model := models.BillModelFromDomain(b)
		if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err)
		}
		if err := db.Where("bill_id = ?", model.ID).Delete(&models.BillItemModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear items of bill %s: %w", model.ID, err)
		}
		if len(model.Items) == 0 {
			continue
		}
		if err := db.Create(&model.Items).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

// DeleteByBooking removes every bill and bill item of a booking
func (r *GormBillRepository) DeleteByBooking(ctx context.Context, bookingID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	billIDs := db.Model(&models.BillModel{}).Select("id").Where("booking_id = ?", bookingID)
	if err := db.Where("bill_id IN (?)", billIDs).Delete(&models.BillItemModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("booking_id = ?", bookingID).Delete(&models.BillModel{}).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Ensure GormBillRepository implements BillRepository
var _ booking.BillRepository = (*GormBillRepository)(nil)
