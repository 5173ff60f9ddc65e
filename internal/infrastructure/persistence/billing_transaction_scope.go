package persistence

import (
	"context"

	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/domain/booking"
	"gorm.io/gorm"
)

// GormTransactionScope implements the booking TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbooking.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) BookingRepo() booking.BookingRepository {
	return NewGormBookingRepository(r.tx)
}

func (r *gormTransactionalRepositories) DepositRepo() booking.DepositRepository {
	return NewGormDepositRepository(r.tx)
}

func (r *gormTransactionalRepositories) BillRepo() booking.BillRepository {
	return NewGormBillRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() booking.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) TransactionRepo() booking.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) CatalogRepo() booking.CatalogRepository {
	return NewGormCatalogRepository(r.tx)
}

func (r *gormTransactionalRepositories) DirectoryRepo() booking.DirectoryRepository {
	return NewGormDirectoryRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbooking.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appbooking.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
