package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BookingTerms are the caller-controlled parameters of a booking
type BookingTerms struct {
	RoomID            uuid.UUID
	TenantID          uuid.UUID
	StartDate         time.Time
	EndDate           *time.Time // only honoured without a duration
	Fee               decimal.Decimal
	SecondResidentFee *decimal.Decimal
	AddOns            []BookingAddOn
}

// Booking represents a tenant's stay in a room
type Booking struct {
	shared.BaseAggregateRoot
	RoomID            uuid.UUID        `json:"room_id"`
	TenantID          uuid.UUID        `json:"tenant_id"`
	StartDate         time.Time        `json:"start_date"`
	EndDate           *time.Time       `json:"end_date,omitempty"`
	DurationID        *uuid.UUID       `json:"duration_id,omitempty"`
	MonthCount        int              `json:"month_count"` // snapshot of the duration, 0 when rolling
	Fee               decimal.Decimal  `json:"fee"`
	SecondResidentFee *decimal.Decimal `json:"second_resident_fee,omitempty"`
	IsRolling         bool             `json:"is_rolling"`
	AddOns            []BookingAddOn   `json:"addons"`
}

// NewBooking creates a booking. A nil duration makes it rolling unless an end date is given.
func NewBooking(terms BookingTerms, duration *Duration) (*Booking, error) {
	b := &Booking{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
	}
	if err := b.apply(terms, duration); err != nil {
		return nil, err
	}
	b.Record(NewBookingCreatedEvent(b))
	return b, nil
}

// Update replaces the booking terms
func (b *Booking) Update(terms BookingTerms, duration *Duration) error {
	if err := b.apply(terms, duration); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.Record(NewBookingUpdatedEvent(b))
	return nil
}

func (b *Booking) apply(terms BookingTerms, duration *Duration) error {
	if terms.RoomID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROOM", "Room is required")
	}
	if terms.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant is required")
	}
	if terms.StartDate.IsZero() {
		return shared.NewDomainError("INVALID_START_DATE", "Start date is required")
	}
	if !terms.Fee.IsPositive() {
		return shared.NewDomainError("INVALID_FEE", "Fee must be positive")
	}
	if terms.SecondResidentFee != nil && terms.SecondResidentFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Second resident fee cannot be negative")
	}
	if duration != nil && duration.MonthCount <= 0 {
		return shared.NewDomainError("INVALID_DURATION", "Duration must span at least one month")
	}

	start := DateOf(terms.StartDate)
	b.RoomID = terms.RoomID
	b.TenantID = terms.TenantID
	b.StartDate = start
	b.Fee = terms.Fee
	b.SecondResidentFee = terms.SecondResidentFee
	if b.SecondResidentFee != nil && b.SecondResidentFee.IsZero() {
		b.SecondResidentFee = nil
	}

	switch {
	case duration != nil:
		end := FixedEndDate(start, duration.MonthCount)
		id := duration.ID
		b.DurationID = &id
		b.MonthCount = duration.MonthCount
		b.EndDate = &end
		b.IsRolling = false
	case terms.EndDate != nil:
		end := DateOf(*terms.EndDate)
		if end.Before(start) {
			return shared.NewDomainError("INVALID_END_DATE", "End date cannot be before start date")
		}
		b.DurationID = nil
		b.MonthCount = 0
		b.EndDate = &end
		b.IsRolling = false
	default:
		b.DurationID = nil
		b.MonthCount = 0
		b.EndDate = nil
		b.IsRolling = true
	}

	addOns := make([]BookingAddOn, 0, len(terms.AddOns))
	for _, ba := range terms.AddOns {
		if err := ba.Validate(); err != nil {
			return shared.NewDomainError("INVALID_ADDON", err.Error())
		}
		if ba.ID == uuid.Nil {
			ba.ID = uuid.New()
		}
		ba.BookingID = b.ID
		ba.StartDate = DateOf(ba.StartDate)
		addOns = append(addOns, ba)
	}
	b.AddOns = addOns
	return nil
}

// Checkout schedules the end of a rolling stay. Existing bills are left alone.
func (b *Booking) Checkout(endDate time.Time) error {
	if !b.IsRolling {
		return shared.NewDomainError("INVALID_STATE", "Only rolling bookings can be checked out")
	}
	end := DateOf(endDate)
	if end.Before(b.StartDate) {
		return shared.NewDomainError("INVALID_END_DATE", "End date cannot be before start date")
	}
	b.EndDate = &end
	b.IsRolling = false
	b.Touch()
	b.IncrementVersion()
	b.Record(NewBookingCheckedOutEvent(b))
	return nil
}

// Term returns the billing term of the booking
func (b *Booking) Term() Term {
	return Term{
		StartDate:  b.StartDate,
		MonthCount: b.MonthCount,
		EndDate:    b.EndDate,
	}
}

// IsOpenEnded returns true for a rolling booking that has not been scheduled to end
func (b *Booking) IsOpenEnded() bool {
	return b.EndDate == nil
}

// Overlaps reports whether two bookings claim the same room on at least one day.
// An open-ended booking occupies the room from its start date onwards.
func (b *Booking) Overlaps(other *Booking) bool {
	if other == nil || b.RoomID != other.RoomID || b.ID == other.ID {
		return false
	}
	if other.EndDate != nil && other.EndDate.Before(b.StartDate) {
		return false
	}
	if b.EndDate != nil && b.EndDate.Before(other.StartDate) {
		return false
	}
	return true
}

// CheckOverlap validates a candidate booking against the other bookings of its room
func CheckOverlap(candidate *Booking, existing []*Booking) error {
	for _, other := range existing {
		if !candidate.Overlaps(other) {
			continue
		}
		if other.IsOpenEnded() {
			return shared.NewDomainError("BOOKING_OVERLAP",
				fmt.Sprintf("Room is occupied by a rolling booking starting %s that has not been scheduled to end",
					other.StartDate.Format("2006-01-02")))
		}
		return shared.NewDomainError("BOOKING_OVERLAP",
			fmt.Sprintf("Room is already booked from %s to %s",
				other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02")))
	}
	return nil
}

var _ shared.AggregateRoot = (*Booking)(nil)
