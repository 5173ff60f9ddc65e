package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillingSnapshotProvider computes the billing gauges straight from the database.
type GormBillingSnapshotProvider struct {
	db *gorm.DB
}

// NewGormBillingSnapshotProvider creates a new GormBillingSnapshotProvider
func NewGormBillingSnapshotProvider(db *gorm.DB) *GormBillingSnapshotProvider {
	return &GormBillingSnapshotProvider{db: db}
}

// BillingSnapshot counts bookings running on asOf, deposits held, and the unpaid total of
// bills due on or before asOf.
func (p *GormBillingSnapshotProvider) BillingSnapshot(ctx context.Context, asOf time.Time) (telemetry.BillingSnapshot, error) {
	db := p.db.WithContext(ctx)
	day := booking.DateOf(asOf)
	var snap telemetry.BillingSnapshot

	if err := db.Model(&models.BookingModel{}).
		Where("start_date <= ? AND (end_date IS NULL OR end_date >= ?)", day, day).
		Count(&snap.ActiveBookings).Error; err != nil {
		return snap, fmt.Errorf("failed to count active bookings: %w", err)
	}

	if err := db.Model(&models.DepositModel{}).
		Where("status = ?", string(booking.DepositStatusHeld)).
		Count(&snap.HeldDeposits).Error; err != nil {
		return snap, fmt.Errorf("failed to count held deposits: %w", err)
	}

	dueBills := db.Model(&models.BillModel{}).Select("id").Where("due_date <= ?", day)
	var billed, paid decimal.NullDecimal
	if err := db.Model(&models.BillItemModel{}).
		Select("SUM(amount)").
		Where("bill_id IN (?)", dueBills).
		Row().Scan(&billed); err != nil {
		return snap, fmt.Errorf("failed to sum billed amount: %w", err)
	}
	if err := db.Model(&models.PaymentBillModel{}).
		Select("SUM(amount)").
		Where("bill_id IN (?)", dueBills).
		Row().Scan(&paid); err != nil {
		return snap, fmt.Errorf("failed to sum paid amount: %w", err)
	}
	snap.OutstandingTotal = decimal.Max(billed.Decimal.Sub(paid.Decimal), decimal.Zero)
	return snap, nil
}

var _ telemetry.BillingSnapshotProvider = (*GormBillingSnapshotProvider)(nil)
