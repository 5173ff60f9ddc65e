package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BookingModel is the persistence model for the Booking aggregate root.
type BookingModel struct {
	AggregateModel
	RoomID            uuid.UUID        `gorm:"type:uuid;not null;index"`
	TenantID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	StartDate         time.Time        `gorm:"type:date;not null"`
	EndDate           *time.Time       `gorm:"type:date"`
	DurationID        *uuid.UUID       `gorm:"type:uuid"`
	MonthCount        int              `gorm:"not null;default:0"`
	Fee               decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	SecondResidentFee *decimal.Decimal `gorm:"type:decimal(18,2)"`
	IsRolling         bool             `gorm:"not null;default:false"`
	// Associations
	AddOns []BookingAddOnModel `gorm:"foreignKey:BookingID;references:ID"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain Booking
func (m *BookingModel) ToDomain() *booking.Booking {
	b := &booking.Booking{
		BaseAggregateRoot: m.ToAggregateRoot(),
		RoomID:            m.RoomID,
		TenantID:          m.TenantID,
		StartDate:         booking.DateOf(m.StartDate),
		EndDate:           optionalDate(m.EndDate),
		DurationID:        m.DurationID,
		MonthCount:        m.MonthCount,
		Fee:               m.Fee,
		SecondResidentFee: m.SecondResidentFee,
		IsRolling:         m.IsRolling,
		AddOns:            make([]booking.BookingAddOn, len(m.AddOns)),
	}
	for i := range m.AddOns {
		b.AddOns[i] = m.AddOns[i].ToDomain()
	}
	return b
}

// FromDomain populates the persistence model from a domain Booking
func (m *BookingModel) FromDomain(b *booking.Booking) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.RoomID = b.RoomID
	m.TenantID = b.TenantID
	m.StartDate = b.StartDate
	m.EndDate = b.EndDate
	m.DurationID = b.DurationID
	m.MonthCount = b.MonthCount
	m.Fee = b.Fee
	m.SecondResidentFee = b.SecondResidentFee
	m.IsRolling = b.IsRolling
	m.AddOns = make([]BookingAddOnModel, len(b.AddOns))
	for i := range b.AddOns {
		m.AddOns[i] = BookingAddOnModelFromDomain(b.ID, b.AddOns[i])
	}
}

// BookingModelFromDomain creates a new persistence model from a domain Booking
func BookingModelFromDomain(b *booking.Booking) *BookingModel {
	m := &BookingModel{}
	m.FromDomain(b)
	return m
}

// BookingAddOnModel attaches a catalog add-on to a booking.
type BookingAddOnModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	BookingID uuid.UUID  `gorm:"type:uuid;not null;index"`
	AddOnID   uuid.UUID  `gorm:"column:addon_id;type:uuid;not null"`
	StartDate time.Time  `gorm:"type:date;not null"`
	EndDate   *time.Time `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (BookingAddOnModel) TableName() string {
	return "booking_addons"
}

// ToDomain converts the persistence model to a domain BookingAddOn
func (m *BookingAddOnModel) ToDomain() booking.BookingAddOn {
	return booking.BookingAddOn{
		ID:        m.ID,
		BookingID: m.BookingID,
		AddOnID:   m.AddOnID,
		StartDate: booking.DateOf(m.StartDate),
		EndDate:   optionalDate(m.EndDate),
	}
}

// BookingAddOnModelFromDomain creates a row for one add-on of a booking, assigning an id
// to associations that have none yet.
func BookingAddOnModelFromDomain(bookingID uuid.UUID, a booking.BookingAddOn) BookingAddOnModel {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return BookingAddOnModel{
		ID:        id,
		BookingID: bookingID,
		AddOnID:   a.AddOnID,
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
	}
}

// DepositModel is the persistence model for a booking deposit.
type DepositModel struct {
	BaseModel
	BookingID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	Amount         decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Status         string           `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	AppliedAt      *time.Time       `gorm:"type:date"`
	RefundedAt     *time.Time       `gorm:"type:date"`
	RefundedAmount *decimal.Decimal `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (DepositModel) TableName() string {
	return "deposits"
}

// ToDomain converts the persistence model to a domain Deposit
func (m *DepositModel) ToDomain() *booking.Deposit {
	return &booking.Deposit{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		BookingID:      m.BookingID,
		Amount:         m.Amount,
		Status:         booking.DepositStatus(m.Status),
		AppliedAt:      optionalDate(m.AppliedAt),
		RefundedAt:     optionalDate(m.RefundedAt),
		RefundedAmount: m.RefundedAmount,
	}
}

// DepositModelFromDomain creates a new persistence model from a domain Deposit
func DepositModelFromDomain(d *booking.Deposit) *DepositModel {
	m := &DepositModel{
		BookingID:      d.BookingID,
		Amount:         d.Amount,
		Status:         string(d.Status),
		AppliedAt:      d.AppliedAt,
		RefundedAt:     d.RefundedAt,
		RefundedAmount: d.RefundedAmount,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// optionalDate strips the time of day a driver may attach to a DATE column
func optionalDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := booking.DateOf(*t)
	return &d
}
