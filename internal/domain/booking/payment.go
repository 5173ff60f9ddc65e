package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the payment status lookup
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentBill is the part of a payment allocated to one bill
type PaymentBill struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	BillID    uuid.UUID       `json:"bill_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Payment is money received for a booking
type Payment struct {
	shared.BaseAggregateRoot
	BookingID   uuid.UUID       `json:"booking_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Status      PaymentStatus   `json:"status"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Allocations []PaymentBill   `json:"allocations"`
}

// NewPayment records a payment for a booking
func NewPayment(bookingID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, status PaymentStatus) (*Payment, error) {
	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookingID:         bookingID,
		Allocations:       make([]PaymentBill, 0),
	}
	if err := p.Amend(amount, paymentDate, status); err != nil {
		return nil, err
	}
	return p, nil
}

// Amend changes amount, date and status. Allocations must be replaced afterwards.
func (p *Payment) Amend(amount decimal.Decimal, paymentDate time.Time, status PaymentStatus) error {
	if p.BookingID == uuid.Nil {
		return shared.NewDomainError("INVALID_BOOKING", "Booking is required")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		return shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if status == "" {
		status = PaymentStatusConfirmed
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown payment status %s", status))
	}
	p.Amount = amount
	p.PaymentDate = DateOf(paymentDate)
	p.Status = status
	p.Touch()
	return nil
}

// Revise amends an existing payment and bumps its version for the optimistic lock
func (p *Payment) Revise(amount decimal.Decimal, paymentDate time.Time, status PaymentStatus) error {
	if err := p.Amend(amount, paymentDate, status); err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}

// ReplaceAllocations swaps the whole allocation set for the result of an allocation run
func (p *Payment) ReplaceAllocations(result *AllocationResult) error {
	if result == nil {
		p.Allocations = make([]PaymentBill, 0)
		return nil
	}
	if result.TotalAllocated.GreaterThan(p.Amount) {
		return shared.NewDomainError("ALLOCATION_EXCEEDS_PAYMENT",
			fmt.Sprintf("Allocated %s exceeds payment amount %s",
				FormatAmount(result.TotalAllocated), FormatAmount(p.Amount)))
	}
	allocations := make([]PaymentBill, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		allocations = append(allocations, PaymentBill{
			ID:        uuid.New(),
			PaymentID: p.ID,
			BillID:    a.BillID,
			Amount:    a.Amount,
		})
	}
	p.Allocations = allocations
	p.Record(NewPaymentRecordedEvent(p))
	return nil
}

// AllocatedAmount returns the sum of all allocations
func (p *Payment) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// UnallocatedAmount returns the part of the payment not assigned to any bill
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedAmount())
}

// AllocatedTo returns the amount this payment allocated to a bill
func (p *Payment) AllocatedTo(billID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		if a.BillID == billID {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// SortPaymentsByDate orders payments by payment date, then creation time, then id.
// This is the order re-allocation runs in and the order deposit funding is attributed.
func SortPaymentsByDate(payments []*Payment) {
	sortStable(payments, func(a, b *Payment) bool {
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.Before(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// PaymentRecordedEvent is raised whenever a payment's allocations are (re)written
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	BookingID   uuid.UUID       `json:"booking_id"`
	Amount      decimal.Decimal `json:"amount"`
	Allocated   decimal.Decimal `json:"allocated"`
	BillCount   int             `json:"bill_count"`
	PaymentDate time.Time       `json:"payment_date"`
	Status      PaymentStatus   `json:"status"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		BookingID:       p.BookingID,
		Amount:          p.Amount,
		Allocated:       p.AllocatedAmount(),
		BillCount:       len(p.Allocations),
		PaymentDate:     p.PaymentDate,
		Status:          p.Status,
	}
}

// PaymentDeletedEvent is raised after a payment and its ledger rows are removed
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	BookingID uuid.UUID       `json:"booking_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentDeletedEvent) EventType() string {
	return EventTypePaymentDeleted
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(p *Payment) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		BookingID:       p.BookingID,
		Amount:          p.Amount,
	}
}

var _ shared.AggregateRoot = (*Payment)(nil)
