package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDepositRepository implements DepositRepository using GORM
type GormDepositRepository struct {
	db *gorm.DB
}

// NewGormDepositRepository creates a new GormDepositRepository
func NewGormDepositRepository(db *gorm.DB) *GormDepositRepository {
	return &GormDepositRepository{db: db}
}

// FindByID finds a deposit by ID, returning nil if absent
func (r *GormDepositRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Deposit, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByBooking finds the deposit of a booking, returning nil if it has none
func (r *GormDepositRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) (*booking.Deposit, error) {
	return r.first(ctx, "booking_id = ?", bookingID)
}

func (r *GormDepositRepository) first(ctx context.Context, cond string, arg uuid.UUID) (*booking.Deposit, error) {
	var model models.DepositModel
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a deposit
func (r *GormDepositRepository) Save(ctx context.Context, d *booking.Deposit) error {
	if err := r.db.WithContext(ctx).Save(models.DepositModelFromDomain(d)).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Delete removes a deposit
func (r *GormDepositRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DepositModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormDepositRepository implements DepositRepository
var _ booking.DepositRepository = (*GormDepositRepository)(nil)
