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

// GormBookingRepository implements BookingRepository using GORM
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) withAddOns(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("AddOns", func(db *gorm.DB) *gorm.DB {
		return db.Order("start_date ASC, id ASC")
	})
}

// FindByID finds a booking with its add-on associations, returning nil if absent
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	var model models.BookingModel
	if err := r.withAddOns(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRoom finds every booking of a room
func (r *GormBookingRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*booking.Booking, error) {
	var rows []models.BookingModel
	if err := r.withAddOns(ctx).
		Where("room_id = ?", roomID).
		Order("start_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return bookingsToDomain(rows), nil
}

// FindAll lists bookings with pagination and returns the unpaginated total
func (r *GormBookingRepository) FindAll(ctx context.Context, filter booking.BookingFilter) ([]*booking.Booking, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.RoomID != nil {
			db = db.Where("room_id = ?", *filter.RoomID)
		}
		if filter.TenantID != nil {
			db = db.Where("tenant_id = ?", *filter.TenantID)
		}
		if filter.IsRolling != nil {
			db = db.Where("is_rolling = ?", *filter.IsRolling)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.BookingModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BookingModel
	if err := r.withAddOns(ctx).Scopes(scope, bookingSort.page(filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return bookingsToDomain(rows), total, nil
}

// Save creates or updates a booking and replaces its add-on associations
func (r *GormBookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	model := models.BookingModelFromDomain(b)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(model).Error; err != nil {
		return translateError(err)
	}
	return r.replaceAddOns(ctx, model)
}

// SaveWithLock updates the booking only if its stored version is the one it was loaded at
func (r *GormBookingRepository) SaveWithLock(ctx context.Context, b *booking.Booking) error {
	model := models.BookingModelFromDomain(b)
	result := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Where("id = ? AND version = ?", b.ID, b.Version-1).
		Updates(map[string]any{
			"room_id":             model.RoomID,
			"tenant_id":           model.TenantID,
			"start_date":          model.StartDate,
			"end_date":            model.EndDate,
			"duration_id":         model.DurationID,
			"month_count":         model.MonthCount,
			"fee":                 model.Fee,
			"second_resident_fee": model.SecondResidentFee,
			"is_rolling":          model.IsRolling,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return r.replaceAddOns(ctx, model)
}

func (r *GormBookingRepository) replaceAddOns(ctx context.Context, model *models.BookingModel) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("booking_id = ?", model.ID).Delete(&models.BookingAddOnModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear booking add-ons: %w", err)
	}
	if len(model.AddOns) == 0 {
		return nil
	}
	if err := db.Create(&model.AddOns).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Delete removes a booking and its add-on associations
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("booking_id = ?", id).Delete(&models.BookingAddOnModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.BookingModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func bookingsToDomain(rows []models.BookingModel) []*booking.Booking {
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].ToDomain()
	}
	return bookings
}

// Ensure GormBookingRepository implements BookingRepository
var _ booking.BookingRepository = (*GormBookingRepository)(nil)
