package booking

import (
	"context"

	"github.com/hms/backend/internal/domain/booking"
)

// TransactionScope provides transactional access to the booking repositories.
// Every repository handed to fn shares one database transaction, which is committed when fn
// returns nil and rolled back otherwise.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all booking repositories within a transaction.
//
// Aggregate boundary notes:
//   - BookingRepo owns the booking and its add-on associations.
//   - BillRepo stores bills and items; bills are only ever replaced as a set by regeneration
//     or appended by rolling extension.
//   - PaymentRepo owns payments and their PaymentBill allocations.
//   - TransactionRepo is the ledger. Rows are derived from payments and deposits and are
//     looked up through their related tags.
type TransactionalRepositories interface {
	BookingRepo() booking.BookingRepository
	DepositRepo() booking.DepositRepository
	BillRepo() booking.BillRepository
	PaymentRepo() booking.PaymentRepository
	TransactionRepo() booking.TransactionRepository
	CatalogRepo() booking.CatalogRepository
	DirectoryRepo() booking.DirectoryRepository
}

// Repositories groups the repositories handed to NewNoOpTransactionScope
type Repositories struct {
	Bookings     booking.BookingRepository
	Deposits     booking.DepositRepository
	Bills        booking.BillRepository
	Payments     booking.PaymentRepository
	Transactions booking.TransactionRepository
	Catalog      booking.CatalogRepository
	Directory    booking.DirectoryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BookingRepo returns the booking repository.
func (s *NoOpTransactionScope) BookingRepo() booking.BookingRepository {
	return s.repos.Bookings
}

// DepositRepo returns the deposit repository.
func (s *NoOpTransactionScope) DepositRepo() booking.DepositRepository {
	return s.repos.Deposits
}

// BillRepo returns the bill repository.
func (s *NoOpTransactionScope) BillRepo() booking.BillRepository {
	return s.repos.Bills
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() booking.PaymentRepository {
	return s.repos.Payments
}

// TransactionRepo returns the ledger repository.
func (s *NoOpTransactionScope) TransactionRepo() booking.TransactionRepository {
	return s.repos.Transactions
}

// CatalogRepo returns the catalog repository.
func (s *NoOpTransactionScope) CatalogRepo() booking.CatalogRepository {
	return s.repos.Catalog
}

// DirectoryRepo returns the room and tenant directory.
func (s *NoOpTransactionScope) DirectoryRepo() booking.DirectoryRepository {
	return s.repos.Directory
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
