package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for a bill.
type BillModel struct {
	BaseModel
	BookingID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_bill_booking_due,priority:1"`
	DueDate     time.Time       `gorm:"type:date;not null;index:idx_bill_booking_due,priority:2"`
	Description string          `gorm:"type:varchar(200);not null"`
	Items       []BillItemModel `gorm:"foreignKey:BillID;references:ID"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *booking.Bill {
	b := &booking.Bill{
		BaseEntity:  m.BaseModel.ToDomain(),
		BookingID:   m.BookingID,
		DueDate:     booking.DateOf(m.DueDate),
		Description: m.Description,
		Items:       make([]booking.BillItem, len(m.Items)),
	}
	for i := range m.Items {
		b.Items[i] = m.Items[i].ToDomain()
	}
	return b
}

// BillModelFromDomain creates a new persistence model from a domain Bill
func BillModelFromDomain(b *booking.Bill) *BillModel {
	m := &BillModel{
		BookingID:   b.BookingID,
		DueDate:     b.DueDate,
		Description: b.Description,
		Items:       make([]BillItemModel, len(b.Items)),
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	for i, item := range b.Items {
		m.Items[i] = BillItemModelFromDomain(b.ID, i, item)
	}
	return m
}

// BillItemModel is one charge on a bill. The related tag is flattened into two columns.
type BillItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(200);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type        string          `gorm:"type:varchar(20);not null"`
	RelatedKind *string         `gorm:"type:varchar(20)"`
	RelatedID   *uuid.UUID      `gorm:"type:uuid;index"`
	SortOrder   int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BillItemModel) TableName() string {
	return "bill_items"
}

// ToDomain converts the persistence model to a domain BillItem
func (m *BillItemModel) ToDomain() booking.BillItem {
	item := booking.BillItem{
		ID:          m.ID,
		BillID:      m.BillID,
		Description: m.Description,
		Amount:      m.Amount,
		Type:        booking.BillItemType(m.Type),
		SortOrder:   m.SortOrder,
	}
	if m.RelatedKind != nil && m.RelatedID != nil {
		item.Related = &booking.RelatedTag{Kind: booking.RelatedKind(*m.RelatedKind), ID: *m.RelatedID}
	}
	return item
}

// BillItemModelFromDomain creates a row for the item at position index of a bill
func BillItemModelFromDomain(billID uuid.UUID, index int, item booking.BillItem) BillItemModel {
	id := item.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	m := BillItemModel{
		ID:          id,
		BillID:      billID,
		Description: item.Description,
		Amount:      item.Amount,
		Type:        string(item.Type),
		SortOrder:   item.SortOrder,
	}
	if m.SortOrder == 0 {
		m.SortOrder = index
	}
	if item.Related != nil {
		kind := string(item.Related.Kind)
		relatedID := item.Related.ID
		m.RelatedKind = &kind
		m.RelatedID = &relatedID
	}
	return m
}
