package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for a ledger row.
type TransactionModel struct {
	BaseModel
	Amount      decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Date        time.Time             `gorm:"type:date;not null;index"`
	Category    string                `gorm:"type:varchar(30);not null;index"`
	Type        string                `gorm:"type:varchar(10);not null"`
	Description string                `gorm:"type:varchar(255)"`
	Tags        []TransactionTagModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *booking.Transaction {
	tx := &booking.Transaction{
		BaseEntity:  m.BaseModel.ToDomain(),
		Amount:      m.Amount,
		Date:        booking.DateOf(m.Date),
		Category:    booking.TransactionCategory(m.Category),
		Type:        booking.TransactionType(m.Type),
		Description: m.Description,
		Tags:        make(booking.Tags, len(m.Tags)),
	}
	for i, t := range m.Tags {
		tx.Tags[i] = booking.RelatedTag{Kind: booking.RelatedKind(t.Kind), ID: t.RelatedID}
	}
	return tx
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction
func TransactionModelFromDomain(tx *booking.Transaction) *TransactionModel {
	m := &TransactionModel{
		Amount:      tx.Amount,
		Date:        tx.Date,
		Category:    string(tx.Category),
		Type:        string(tx.Type),
		Description: tx.Description,
		Tags:        make([]TransactionTagModel, len(tx.Tags)),
	}
	m.FromDomainBaseEntity(tx.BaseEntity)
	for i, t := range tx.Tags {
		m.Tags[i] = TransactionTagModel{TransactionID: tx.ID, Kind: string(t.Kind), RelatedID: t.ID}
	}
	return m
}

// TransactionTagModel links a ledger row to the payment, deposit or booking it mirrors.
type TransactionTagModel struct {
	TransactionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind          string    `gorm:"type:varchar(20);primaryKey;index:idx_transaction_tag_related,priority:1"`
	RelatedID     uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_transaction_tag_related,priority:2"`
}

// TableName returns the table name for GORM
func (TransactionTagModel) TableName() string {
	return "transaction_tags"
}
