package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockBookingRepository is a mock implementation of booking.BookingRepository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*booking.Booking, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindAll(ctx context.Context, filter booking.BookingFilter) ([]*booking.Booking, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*booking.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepository) SaveWithLock(ctx context.Context, b *booking.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockDepositRepository is a mock implementation of booking.DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Deposit), args.Error(1)
}

func (m *MockDepositRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) (*booking.Deposit, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Deposit), args.Error(1)
}

func (m *MockDepositRepository) Save(ctx context.Context, d *booking.Deposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDepositRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockBillRepository is a mock implementation of booking.BillRepository
type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Bill), args.Error(1)
}

func (m *MockBillRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*booking.Bill, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]*booking.Bill), args.Error(1)
}

func (m *MockBillRepository) SaveAll(ctx context.Context, bills []*booking.Bill) error {
	return m.Called(ctx, bills).Error(0)
}

func (m *MockBillRepository) DeleteByBooking(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

// MockPaymentRepository is a mock implementation of booking.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*booking.Payment, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]*booking.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, p *booking.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, p *booking.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPaymentRepository) DeleteAllocationsByBooking(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

// MockTransactionRepository is a mock implementation of booking.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByRelated(ctx context.Context, kind booking.RelatedKind, id uuid.UUID) ([]*booking.Transaction, error) {
	args := m.Called(ctx, kind, id)
	return args.Get(0).([]*booking.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter booking.TransactionFilter) ([]*booking.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*booking.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *booking.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockCatalogRepository is a mock implementation of booking.CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindDuration(ctx context.Context, id uuid.UUID) (*booking.Duration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Duration), args.Error(1)
}

func (m *MockCatalogRepository) FindAddOns(ctx context.Context, ids []uuid.UUID) ([]booking.AddOn, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]booking.AddOn), args.Error(1)
}

// MockDirectoryRepository is a mock implementation of booking.DirectoryRepository
type MockDirectoryRepository struct {
	mock.Mock
}

func (m *MockDirectoryRepository) RoomExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectoryRepository) TenantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType())
	}
	return types
}

// stubLocker counts acquisitions and releases, failing with err when set
type stubLocker struct {
	mu       sync.Mutex
	err      error
	acquired []uuid.UUID
	released int
}

func (l *stubLocker) Acquire(_ context.Context, bookingID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, bookingID)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

// testRepos bundles one mock per repository
type testRepos struct {
	bookings     *MockBookingRepository
	deposits     *MockDepositRepository
	bills        *MockBillRepository
	payments     *MockPaymentRepository
	transactions *MockTransactionRepository
	catalog      *MockCatalogRepository
	directory    *MockDirectoryRepository
}

func newTestRepos() *testRepos {
	return &testRepos{
		bookings:     new(MockBookingRepository),
		deposits:     new(MockDepositRepository),
		bills:        new(MockBillRepository),
		payments:     new(MockPaymentRepository),
		transactions: new(MockTransactionRepository),
		catalog:      new(MockCatalogRepository),
		directory:    new(MockDirectoryRepository),
	}
}

func (r *testRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(Repositories{
		Bookings:     r.bookings,
		Deposits:     r.deposits,
		Bills:        r.bills,
		Payments:     r.payments,
		Transactions: r.transactions,
		Catalog:      r.catalog,
		Directory:    r.directory,
	})
}

var errDatabase = errors.New("database unavailable")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func idr(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
