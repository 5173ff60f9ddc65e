package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
)

// BookingFilter defines filtering options for booking queries
type BookingFilter struct {
	shared.Filter
	RoomID    *uuid.UUID
	TenantID  *uuid.UUID
	IsRolling *bool
}

// BookingRepository persists the Booking aggregate including its add-on associations
type BookingRepository interface {
	// FindByID finds a booking by ID, returning nil if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByRoom finds every booking of a room, used for overlap checks
	FindByRoom(ctx context.Context, roomID uuid.UUID) ([]*Booking, error)

	// FindAll lists bookings
	FindAll(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error)

	// Save creates or updates a booking and replaces its add-on associations
	Save(ctx context.Context, b *Booking) error

	// SaveWithLock saves only if the stored version still matches (optimistic lock)
	SaveWithLock(ctx context.Context, b *Booking) error

	// Delete removes a booking and its add-on associations
	Delete(ctx context.Context, id uuid.UUID) error
}

// DepositRepository persists deposits
type DepositRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Deposit, error)
	FindByBooking(ctx context.Context, bookingID uuid.UUID) (*Deposit, error)
	Save(ctx context.Context, d *Deposit) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BillRepository persists bills together with their items
type BillRepository interface {
	// FindByID finds a bill with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindByBooking lists the bills of a booking ordered by due date
	FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Bill, error)

	// SaveAll inserts or updates bills and replaces their items
	SaveAll(ctx context.Context, bills []*Bill) error

	// DeleteByBooking removes every bill and bill item of a booking
	DeleteByBooking(ctx context.Context, bookingID uuid.UUID) error
}

// PaymentRepository persists the Payment aggregate including its allocations
type PaymentRepository interface {
	// FindByID finds a payment with its allocations
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByBooking lists payments of a booking, oldest payment date first
	FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Payment, error)

	// Save creates or updates a payment and replaces its allocation rows
	Save(ctx context.Context, p *Payment) error

	// SaveWithLock saves only if the stored version still matches (optimistic lock)
	SaveWithLock(ctx context.Context, p *Payment) error

	// Delete removes a payment and its allocations
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteAllocationsByBooking removes every allocation pointing at a bill of the booking
	DeleteAllocationsByBooking(ctx context.Context, bookingID uuid.UUID) error
}

// TransactionFilter defines filtering options for ledger queries
type TransactionFilter struct {
	shared.Filter
	Category *TransactionCategory
	Related  *RelatedTag
}

// TransactionRepository persists ledger rows and their related tags
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByRelated finds every row tagged with the given kind and id
	FindByRelated(ctx context.Context, kind RelatedKind, id uuid.UUID) ([]*Transaction, error)

	FindAll(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)
	Save(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CatalogRepository reads the duration and add-on catalogs
type CatalogRepository interface {
	FindDuration(ctx context.Context, id uuid.UUID) (*Duration, error)
	FindAddOns(ctx context.Context, ids []uuid.UUID) ([]AddOn, error)
}

// DirectoryRepository answers existence checks against rooms and tenants
type DirectoryRepository interface {
	RoomExists(ctx context.Context, id uuid.UUID) (bool, error)
	TenantExists(ctx context.Context, id uuid.UUID) (bool, error)
}
