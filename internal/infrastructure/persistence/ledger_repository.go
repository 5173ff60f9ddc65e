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

// GormTransactionRepository implements the ledger TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a ledger row with its tags, returning nil if absent
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).Preload("Tags").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRelated finds every row tagged with the given kind and id, oldest first
func (r *GormTransactionRepository) FindByRelated(ctx context.Context, kind booking.RelatedKind, id uuid.UUID) ([]*booking.Transaction, error) {
	db := r.db.WithContext(ctx)
	var rows []models.TransactionModel
	if err := db.Preload("Tags").
		Where("id IN (?)", taggedWith(db, kind, id)).
		Order("date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(rows), nil
}

// FindAll lists ledger rows with pagination and returns the unpaginated total
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter booking.TransactionFilter) ([]*booking.Transaction, int64, error) {
	db := r.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Category != nil {
			q = q.Where("category = ?", string(*filter.Category))
		}
		if filter.Related != nil {
			q = q.Where("id IN (?)", taggedWith(db, filter.Related.Kind, filter.Related.ID))
		}
		return q
	}

	var total int64
	if err := db.Model(&models.TransactionModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TransactionModel
	if err := db.Preload("Tags").Scopes(scope, transactionSort.page(filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return transactionsToDomain(rows), total, nil
}

// Save creates or updates a ledger row and replaces its tags
func (r *GormTransactionRepository) Save(ctx context.Context, tx *booking.Transaction) error {
	db := r.db.WithContext(ctx)
	model := models.TransactionModelFromDomain(tx)
	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return translateError(err)
	}
	if err := db.Where("transaction_id = ?", model.ID).Delete(&models.TransactionTagModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear transaction tags: %w", err)
	}
	if len(model.Tags) == 0 {
		return nil
	}
	return translateError(db.Create(&model.Tags).Error)
}

// Delete removes a ledger row and its tags
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("transaction_id = ?", id).Delete(&models.TransactionTagModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// taggedWith selects the ids of ledger rows carrying the tag
func taggedWith(db *gorm.DB, kind booking.RelatedKind, id uuid.UUID) *gorm.DB {
	return db.Model(&models.TransactionTagModel{}).
		Select("transaction_id").
		Where("kind = ? AND related_id = ?", string(kind), id)
}

func transactionsToDomain(rows []models.TransactionModel) []*booking.Transaction {
	txs := make([]*booking.Transaction, len(rows))
	for i := range rows {
		txs[i] = rows[i].ToDomain()
	}
	return txs
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ booking.TransactionRepository = (*GormTransactionRepository)(nil)
