package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) withAllocations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Allocations")
}

// FindByID finds a payment with its allocations, returning nil if absent
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Payment, error) {
	var model models.PaymentModel
	if err := r.withAllocations(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBooking lists payments of a booking, oldest payment date first
func (r *GormPaymentRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*booking.Payment, error) {
	var rows []models.PaymentModel
	if err := r.withAllocations(ctx).
		Where("booking_id = ?", bookingID).
		Order("payment_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]*booking.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment and replaces its allocation rows
func (r *GormPaymentRepository) Save(ctx context.Context, p *booking.Payment) error {
	model := models.PaymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(model).Error; err != nil {
		return translateError(err)
	}
	return r.replaceAllocations(ctx, model)
}

// SaveWithLock updates the payment only if its stored version is the one it was loaded at
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *booking.Payment) error {
	model := models.PaymentModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Updates(map[string]any{
			"amount":       model.Amount,
			"payment_date": model.PaymentDate,
			"status":       model.Status,
			"method":       model.Method,
			"reference":    model.Reference,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return r.replaceAllocations(ctx, model)
}

func (r *GormPaymentRepository) replaceAllocations(ctx context.Context, model *models.PaymentModel) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("payment_id = ?", model.ID).Delete(&models.PaymentBillModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	if len(model.Allocations) == 0 {
		return nil
	}
	if err := db.Create(&model.Allocations).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Delete removes a payment and its allocations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("payment_id = ?", id).Delete(&models.PaymentBillModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAllocationsByBooking removes every allocation pointing at a bill of the booking
func (r *GormPaymentRepository) DeleteAllocationsByBooking(ctx context.Context, bookingID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	billIDs := db.Model(&models.BillModel{}).Select("id").Where("booking_id = ?", bookingID)
	return db.Where("bill_id IN (?)", billIDs).Delete(&models.PaymentBillModel{}).Error
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ booking.PaymentRepository = (*GormPaymentRepository)(nil)
