package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogRepository reads durations and add-ons using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindDuration finds a duration, returning nil if absent
func (r *GormCatalogRepository) FindDuration(ctx context.Context, id uuid.UUID) (*booking.Duration, error) {
	var model models.DurationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAddOns loads the given add-ons with their pricing tiers. Unknown ids are skipped.
func (r *GormCatalogRepository) FindAddOns(ctx context.Context, ids []uuid.UUID) ([]booking.AddOn, error) {
	if len(ids) == 0 {
		return []booking.AddOn{}, nil
	}
	var rows []models.AddOnModel
	if err := r.db.WithContext(ctx).
		Preload("Pricing", func(db *gorm.DB) *gorm.DB { return db.Order("interval_start ASC") }).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	addOns := make([]booking.AddOn, len(rows))
	for i := range rows {
		addOns[i] = rows[i].ToDomain()
	}
	return addOns, nil
}

// GormDirectoryRepository answers room and tenant existence checks using GORM
type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a new GormDirectoryRepository
func NewGormDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

// RoomExists reports whether the room exists
func (r *GormDirectoryRepository) RoomExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.RoomModel{}, id)
}

// TenantExists reports whether the tenant exists
func (r *GormDirectoryRepository) TenantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.TenantModel{}, id)
}

func (r *GormDirectoryRepository) exists(ctx context.Context, model any, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ booking.CatalogRepository   = (*GormCatalogRepository)(nil)
	_ booking.DirectoryRepository = (*GormDirectoryRepository)(nil)
)
