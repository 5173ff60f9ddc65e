package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DepositStatus represents where a deposit is in its lifecycle
type DepositStatus string

const (
	DepositStatusUnpaid            DepositStatus = "UNPAID"
	DepositStatusHeld              DepositStatus = "HELD"
	DepositStatusApplied           DepositStatus = "APPLIED"
	DepositStatusPartiallyRefunded DepositStatus = "PARTIALLY_REFUNDED"
	DepositStatusRefunded          DepositStatus = "REFUNDED"
)

// IsValid checks if the status is a valid DepositStatus
func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositStatusUnpaid, DepositStatusHeld, DepositStatusApplied,
		DepositStatusPartiallyRefunded, DepositStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of DepositStatus
func (s DepositStatus) String() string {
	return string(s)
}

// CanSettle returns true if the deposit can be applied or refunded
func (s DepositStatus) CanSettle() bool {
	return s == DepositStatusHeld
}

// IsRefunded returns true for both refund outcomes
func (s DepositStatus) IsRefunded() bool {
	return s == DepositStatusRefunded || s == DepositStatusPartiallyRefunded
}

// Deposit is the security deposit of a booking
type Deposit struct {
	shared.BaseEntity
	BookingID      uuid.UUID        `json:"booking_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Status         DepositStatus    `json:"status"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	RefundedAt     *time.Time       `json:"refunded_at,omitempty"`
	RefundedAmount *decimal.Decimal `json:"refunded_amount,omitempty"`

	shared.EventRecorder
}

// NewDeposit creates an unpaid deposit for a booking
func NewDeposit(bookingID uuid.UUID, amount decimal.Decimal) (*Deposit, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_DEPOSIT_AMOUNT", "Deposit amount must be positive")
	}
	return &Deposit{
		BaseEntity: shared.NewBaseEntity(),
		BookingID:  bookingID,
		Amount:     amount,
		Status:     DepositStatusUnpaid,
	}, nil
}

// ChangeAmount updates the amount; only allowed before the deposit is funded
func (d *Deposit) ChangeAmount(amount decimal.Decimal) error {
	if d.Amount.Equal(amount) {
		return nil
	}
	if d.Status != DepositStatusUnpaid {
		return shared.NewDomainError("DEPOSIT_LOCKED",
			fmt.Sprintf("Deposit amount cannot change while %s", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_DEPOSIT_AMOUNT", "Deposit amount must be positive")
	}
	d.Amount = amount
	d.Touch()
	return nil
}

// MarkHeld moves an unpaid deposit to HELD once its bill item is fully paid
func (d *Deposit) MarkHeld() error {
	if d.Status != DepositStatusUnpaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot hold deposit in %s status", d.Status))
	}
	d.transition(DepositStatusHeld)
	return nil
}

// Apply marks a held deposit as used against the tenant's charges
func (d *Deposit) Apply(at time.Time) error {
	if !d.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply deposit in %s status", d.Status))
	}
	d.AppliedAt = &at
	d.transition(DepositStatusApplied)
	return nil
}

// Refund returns a held deposit fully or partially. The resulting status follows the amount.
func (d *Deposit) Refund(amount decimal.Decimal, at time.Time) error {
	if !d.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund deposit in %s status", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_REFUND_AMOUNT", "Refunded amount must be positive")
	}
	if amount.GreaterThan(d.Amount) {
		return shared.NewDomainError("INVALID_REFUND_AMOUNT",
			fmt.Sprintf("Refunded amount %s exceeds deposit %s", FormatAmount(amount), FormatAmount(d.Amount)))
	}
	refunded := amount
	d.RefundedAmount = &refunded
	d.RefundedAt = &at
	if amount.Equal(d.Amount) {
		d.transition(DepositStatusRefunded)
	} else {
		d.transition(DepositStatusPartiallyRefunded)
	}
	return nil
}

// TransitionTo performs a caller-requested settlement: APPLIED, REFUNDED or PARTIALLY_REFUNDED.
func (d *Deposit) TransitionTo(status DepositStatus, refundedAmount *decimal.Decimal, at time.Time) error {
	switch status {
	case DepositStatusApplied:
		return d.Apply(at)
	case DepositStatusRefunded:
		amount := d.Amount
		if refundedAmount != nil {
			amount = *refundedAmount
		}
		if !amount.Equal(d.Amount) {
			return shared.NewDomainError("INVALID_REFUND_AMOUNT", "A full refund must equal the deposit amount")
		}
		return d.Refund(amount, at)
	case DepositStatusPartiallyRefunded:
		if refundedAmount == nil {
			return shared.NewDomainError("INVALID_REFUND_AMOUNT", "Refunded amount is required")
		}
		if !refundedAmount.LessThan(d.Amount) {
			return shared.NewDomainError("INVALID_REFUND_AMOUNT", "A partial refund must be less than the deposit amount")
		}
		return d.Refund(*refundedAmount, at)
	case DepositStatusHeld, DepositStatusUnpaid:
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Deposit status %s follows payments and cannot be set directly", status))
	default:
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown deposit status %s", status))
	}
}

// ResetToUnpaid reverts the deposit after its funding disappeared
func (d *Deposit) ResetToUnpaid() {
	d.AppliedAt = nil
	d.RefundedAt = nil
	d.RefundedAmount = nil
	if d.Status != DepositStatusUnpaid {
		d.transition(DepositStatusUnpaid)
	}
}

// RevertRefund undoes a refund, falling back to HELD or UNPAID depending on funding
func (d *Deposit) RevertRefund(funded bool) {
	if !d.Status.IsRefunded() {
		return
	}
	if !funded {
		d.ResetToUnpaid()
		return
	}
	d.RefundedAt = nil
	d.RefundedAmount = nil
	d.transition(DepositStatusHeld)
}

// SyncFunding reconciles the status with how much of the deposit item is paid.
// Returns true if the status changed.
func (d *Deposit) SyncFunding(funded decimal.Decimal) bool {
	fullyFunded := funded.GreaterThanOrEqual(d.Amount)
	switch {
	case fullyFunded && d.Status == DepositStatusUnpaid:
		d.transition(DepositStatusHeld)
		return true
	case !fullyFunded && d.Status != DepositStatusUnpaid:
		d.ResetToUnpaid()
		return true
	}
	return false
}

func (d *Deposit) transition(to DepositStatus) {
	from := d.Status
	d.Status = to
	d.Touch()
	d.Record(NewDepositStatusChangedEvent(d, from))
}

// DepositStatusChangedEvent is raised on every deposit status transition
type DepositStatusChangedEvent struct {
	shared.BaseDomainEvent
	DepositID      uuid.UUID        `json:"deposit_id"`
	BookingID      uuid.UUID        `json:"booking_id"`
	From           DepositStatus    `json:"from"`
	To             DepositStatus    `json:"to"`
	Amount         decimal.Decimal  `json:"amount"`
	RefundedAmount *decimal.Decimal `json:"refunded_amount,omitempty"`
}

// EventType returns the event type name
func (e *DepositStatusChangedEvent) EventType() string {
	return EventTypeDepositStatusChanged
}

// NewDepositStatusChangedEvent creates a new DepositStatusChangedEvent
func NewDepositStatusChangedEvent(d *Deposit, from DepositStatus) *DepositStatusChangedEvent {
	return &DepositStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositStatusChanged, AggregateTypeDeposit, d.ID),
		DepositID:       d.ID,
		BookingID:       d.BookingID,
		From:            from,
		To:              d.Status,
		Amount:          d.Amount,
		RefundedAmount:  d.RefundedAmount,
	}
}
