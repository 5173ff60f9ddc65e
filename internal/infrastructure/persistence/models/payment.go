package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	BookingID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	PaymentDate time.Time          `gorm:"type:date;not null"`
	Status      string             `gorm:"type:varchar(20);not null;default:'CONFIRMED'"`
	Method      string             `gorm:"type:varchar(50)"`
	Reference   string             `gorm:"type:varchar(100)"`
	Allocations []PaymentBillModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *booking.Payment {
	p := &booking.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BookingID:         m.BookingID,
		Amount:            m.Amount,
		PaymentDate:       booking.DateOf(m.PaymentDate),
		Status:            booking.PaymentStatus(m.Status),
		Method:            m.Method,
		Reference:         m.Reference,
		Allocations:       make([]booking.PaymentBill, len(m.Allocations)),
	}
	for i, a := range m.Allocations {
		p.Allocations[i] = booking.PaymentBill{
			ID:        a.ID,
			PaymentID: a.PaymentID,
			BillID:    a.BillID,
			Amount:    a.Amount,
		}
	}
	return p
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *booking.Payment) *PaymentModel {
	m := &PaymentModel{
		BookingID:   p.BookingID,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Status:      string(p.Status),
		Method:      p.Method,
		Reference:   p.Reference,
		Allocations: make([]PaymentBillModel, len(p.Allocations)),
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	for i, a := range p.Allocations {
		id := a.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Allocations[i] = PaymentBillModel{ID: id, PaymentID: p.ID, BillID: a.BillID, Amount: a.Amount}
	}
	return m
}

// PaymentBillModel is the part of a payment allocated to one bill.
type PaymentBillModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PaymentBillModel) TableName() string {
	return "payment_bills"
}
