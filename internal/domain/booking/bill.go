package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillItemType tells system-computed items apart from ad hoc ones
type BillItemType string

const (
	BillItemTypeGenerated BillItemType = "GENERATED" // computed from the booking terms
	BillItemTypeCreated   BillItemType = "CREATED"   // added by hand
)

// IsValid checks if the type is a valid BillItemType
func (t BillItemType) IsValid() bool {
	return t == BillItemTypeGenerated || t == BillItemTypeCreated
}

// String returns the string representation of BillItemType
func (t BillItemType) String() string {
	return string(t)
}

// BillItem is a single charge on a bill
type BillItem struct {
	ID          uuid.UUID       `json:"id"`
	BillID      uuid.UUID       `json:"bill_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        BillItemType    `json:"type"`
	Related     *RelatedTag     `json:"related,omitempty"`
	SortOrder   int             `json:"sort_order"`
}

// IsDepositItem returns true if the item charges the booking deposit
func (i BillItem) IsDepositItem() bool {
	return i.Related != nil && i.Related.Kind == RelatedKindDeposit
}

// Bill is the charge for one billing period of a booking
type Bill struct {
	shared.BaseEntity
	BookingID   uuid.UUID  `json:"booking_id"`
	DueDate     time.Time  `json:"due_date"`
	Description string     `json:"description"`
	Items       []BillItem `json:"items"`
}

// NewBill creates an empty bill due on dueDate
func NewBill(bookingID uuid.UUID, dueDate time.Time, description string) *Bill {
	return &Bill{
		BaseEntity:  shared.NewBaseEntity(),
		BookingID:   bookingID,
		DueDate:     DateOf(dueDate),
		Description: description,
		Items:       make([]BillItem, 0),
	}
}

// AddItem appends an item, ignoring zero amounts
func (b *Bill) AddItem(description string, amount decimal.Decimal, itemType BillItemType, related *RelatedTag) {
	if amount.IsZero() {
		return
	}
	b.Items = append(b.Items, BillItem{
		ID:          uuid.New(),
		BillID:      b.ID,
		Description: description,
		Amount:      amount,
		Type:        itemType,
		Related:     related,
		SortOrder:   len(b.Items),
	})
}

// Total returns the sum of all item amounts
func (b *Bill) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// DepositAmount returns the amount of the deposit item on this bill, or zero
func (b *Bill) DepositAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		if item.IsDepositItem() {
			total = total.Add(item.Amount)
		}
	}
	return total
}

// DepositItem returns the deposit item if the bill carries one
func (b *Bill) DepositItem() (*BillItem, bool) {
	for i := range b.Items {
		if b.Items[i].IsDepositItem() {
			return &b.Items[i], true
		}
	}
	return nil, false
}

// SortBillsByDueDate orders bills ascending by due date, then creation time, then id.
func SortBillsByDueDate(bills []*Bill) {
	sortStable(bills, func(a, b *Bill) bool {
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
