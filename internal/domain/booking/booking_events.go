package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names used on events
const (
	AggregateTypeBooking = "Booking"
	AggregateTypePayment = "Payment"
	AggregateTypeDeposit = "Deposit"
)

// Event type names
const (
	EventTypeBookingCreated       = "BookingCreated"
	EventTypeBookingUpdated       = "BookingUpdated"
	EventTypeBookingCheckedOut    = "BookingCheckedOut"
	EventTypeBookingDeleted       = "BookingDeleted"
	EventTypeBillsGenerated       = "BillsGenerated"
	EventTypePaymentRecorded      = "PaymentRecorded"
	EventTypePaymentDeleted       = "PaymentDeleted"
	EventTypeDepositStatusChanged = "DepositStatusChanged"
)

// BookingCreatedEvent is raised when a booking is created
type BookingCreatedEvent struct {
	shared.BaseDomainEvent
	BookingID uuid.UUID       `json:"booking_id"`
	RoomID    uuid.UUID       `json:"room_id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	StartDate time.Time       `json:"start_date"`
	Fee       decimal.Decimal `json:"fee"`
	IsRolling bool            `json:"is_rolling"`
}

// EventType returns the event type name
func (e *BookingCreatedEvent) EventType() string {
	return EventTypeBookingCreated
}

// NewBookingCreatedEvent creates a new BookingCreatedEvent
func NewBookingCreatedEvent(b *Booking) *BookingCreatedEvent {
	return &BookingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCreated, AggregateTypeBooking, b.ID),
		BookingID:       b.ID,
		RoomID:          b.RoomID,
		TenantID:        b.TenantID,
		StartDate:       b.StartDate,
		Fee:             b.Fee,
		IsRolling:       b.IsRolling,
	}
}

// BookingUpdatedEvent is raised when booking terms change
type BookingUpdatedEvent struct {
	shared.BaseDomainEvent
	BookingID uuid.UUID       `json:"booking_id"`
	Fee       decimal.Decimal `json:"fee"`
	IsRolling bool            `json:"is_rolling"`
}

// EventType returns the event type name
func (e *BookingUpdatedEvent) EventType() string {
	return EventTypeBookingUpdated
}

// NewBookingUpdatedEvent creates a new BookingUpdatedEvent
func NewBookingUpdatedEvent(b *Booking) *BookingUpdatedEvent {
	return &BookingUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingUpdated, AggregateTypeBooking, b.ID),
		BookingID:       b.ID,
		Fee:             b.Fee,
		IsRolling:       b.IsRolling,
	}
}

// BookingCheckedOutEvent is raised when a rolling booking is scheduled to end
type BookingCheckedOutEvent struct {
	shared.BaseDomainEvent
	BookingID uuid.UUID `json:"booking_id"`
	EndDate   time.Time `json:"end_date"`
}

// EventType returns the event type name
func (e *BookingCheckedOutEvent) EventType() string {
	return EventTypeBookingCheckedOut
}

// NewBookingCheckedOutEvent creates a new BookingCheckedOutEvent
func NewBookingCheckedOutEvent(b *Booking) *BookingCheckedOutEvent {
	var end time.Time
	if b.EndDate != nil {
		end = *b.EndDate
	}
	return &BookingCheckedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCheckedOut, AggregateTypeBooking, b.ID),
		BookingID:       b.ID,
		EndDate:         end,
	}
}

// BookingDeletedEvent is raised after a booking and its dependents are removed
type BookingDeletedEvent struct {
	shared.BaseDomainEvent
	BookingID       uuid.UUID `json:"booking_id"`
	RemovedPayments int       `json:"removed_payments"`
}

// EventType returns the event type name
func (e *BookingDeletedEvent) EventType() string {
	return EventTypeBookingDeleted
}

// NewBookingDeletedEvent creates a new BookingDeletedEvent
func NewBookingDeletedEvent(bookingID uuid.UUID, removedPayments int) *BookingDeletedEvent {
	return &BookingDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingDeleted, AggregateTypeBooking, bookingID),
		BookingID:       bookingID,
		RemovedPayments: removedPayments,
	}
}

// BillsGeneratedEvent is raised when bills are (re)generated or extended for a booking
type BillsGeneratedEvent struct {
	shared.BaseDomainEvent
	BookingID uuid.UUID       `json:"booking_id"`
	BillCount int             `json:"bill_count"`
	Total     decimal.Decimal `json:"total"`
}

// EventType returns the event type name
func (e *BillsGeneratedEvent) EventType() string {
	return EventTypeBillsGenerated
}

// NewBillsGeneratedEvent creates a new BillsGeneratedEvent
func NewBillsGeneratedEvent(bookingID uuid.UUID, bills []*Bill) *BillsGeneratedEvent {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Total())
	}
	return &BillsGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillsGenerated, AggregateTypeBooking, bookingID),
		BookingID:       bookingID,
		BillCount:       len(bills),
		Total:           total,
	}
}
