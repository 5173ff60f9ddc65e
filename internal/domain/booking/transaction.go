package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger row
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// TransactionCategory groups ledger rows by what they pay for
type TransactionCategory string

const (
	CategoryRoomPayment   TransactionCategory = "ROOM_PAYMENT"   // rent, fees and add-ons
	CategoryDeposit       TransactionCategory = "DEPOSIT"        // deposit-tagged bill items
	CategoryDepositRefund TransactionCategory = "DEPOSIT_REFUND" // money returned from a deposit
)

// IsValid checks if the category is known
func (c TransactionCategory) IsValid() bool {
	switch c {
	case CategoryRoomPayment, CategoryDeposit, CategoryDepositRefund:
		return true
	}
	return false
}

// String returns the string representation of TransactionCategory
func (c TransactionCategory) String() string {
	return string(c)
}

// Type returns the ledger direction of the category
func (c TransactionCategory) Type() TransactionType {
	if c == CategoryDepositRefund {
		return TransactionTypeExpense
	}
	return TransactionTypeIncome
}

// DisplayName returns a human-readable name for the category
func (c TransactionCategory) DisplayName() string {
	switch c {
	case CategoryRoomPayment:
		return "Room payment"
	case CategoryDeposit:
		return "Deposit"
	case CategoryDepositRefund:
		return "Deposit refund"
	}
	return string(c)
}

// Transaction is a ledger row mirroring a payment category or a deposit event
type Transaction struct {
	shared.BaseEntity
	Amount      decimal.Decimal     `json:"amount"`
	Date        time.Time           `json:"date"`
	Category    TransactionCategory `json:"category"`
	Type        TransactionType     `json:"type"`
	Description string              `json:"description"`
	Tags        Tags                `json:"tags"`
}

// NewTransaction creates a ledger row for a category
func NewTransaction(category TransactionCategory, amount decimal.Decimal, date time.Time, description string, tags ...RelatedTag) *Transaction {
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		Amount:      amount,
		Date:        date,
		Category:    category,
		Type:        category.Type(),
		Description: description,
		Tags:        append(Tags{}, tags...),
	}
}

// PaymentID returns the payment the row mirrors, if any
func (t *Transaction) PaymentID() (uuid.UUID, bool) {
	return t.Tags.Find(RelatedKindPayment)
}

// DepositID returns the deposit the row is tagged with, if any
func (t *Transaction) DepositID() (uuid.UUID, bool) {
	return t.Tags.Find(RelatedKindDeposit)
}

// BookingID returns the booking the row is tagged with, if any
func (t *Transaction) BookingID() (uuid.UUID, bool) {
	return t.Tags.Find(RelatedKindBooking)
}

// Matches reports whether amount and date already equal the wanted values
func (t *Transaction) Matches(amount decimal.Decimal, date time.Time) bool {
	return t.Amount.Equal(amount) && t.Date.Equal(date)
}
