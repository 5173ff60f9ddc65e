package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// AddOnInput attaches a catalog add-on to a booking
type AddOnInput struct {
	AddOnID   uuid.UUID
	StartDate time.Time
	EndDate   *time.Time
}

// UpsertBookingRequest creates a booking when ID is nil and replaces its terms otherwise
type UpsertBookingRequest struct {
	ID                *uuid.UUID
	Version           *int // expected version on update, skipped when nil
	RoomID            uuid.UUID
	TenantID          uuid.UUID
	StartDate         time.Time
	EndDate           *time.Time
	DurationID        *uuid.UUID // nil makes the booking rolling unless EndDate is set
	Fee               decimal.Decimal
	SecondResidentFee *decimal.Decimal
	DepositAmount     *decimal.Decimal // nil or zero means no deposit
	AddOns            []AddOnInput
}

func (r UpsertBookingRequest) terms() booking.BookingTerms {
	addOns := make([]booking.BookingAddOn, 0, len(r.AddOns))
	for _, a := range r.AddOns {
		addOns = append(addOns, booking.BookingAddOn{
			AddOnID:   a.AddOnID,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
		})
	}
	return booking.BookingTerms{
		RoomID:            r.RoomID,
		TenantID:          r.TenantID,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Fee:               r.Fee,
		SecondResidentFee: r.SecondResidentFee,
		AddOns:            addOns,
	}
}

func (r UpsertBookingRequest) wantsDeposit() bool {
	return r.DepositAmount != nil && r.DepositAmount.IsPositive()
}

// UpsertPaymentRequest records a new payment when ID is nil and revises it otherwise
type UpsertPaymentRequest struct {
	ID          *uuid.UUID
	Version     *int
	BookingID   uuid.UUID
	Amount      decimal.Decimal
	PaymentDate time.Time
	Status      booking.PaymentStatus // defaults to CONFIRMED
	Method      string
	Reference   string
	Mode        booking.AllocationMode
	Allocations map[uuid.UUID]decimal.Decimal // bill id → amount, manual mode only
}

// SimulatePaymentRequest previews an allocation without writing anything
type SimulatePaymentRequest struct {
	BookingID   uuid.UUID
	Amount      decimal.Decimal
	Mode        booking.AllocationMode
	Allocations map[uuid.UUID]decimal.Decimal
}

// UpdateDepositStatusRequest settles a held deposit
type UpdateDepositStatusRequest struct {
	DepositID      uuid.UUID
	Status         booking.DepositStatus
	RefundedAmount *decimal.Decimal
	At             *time.Time // defaults to today
}

// BookingListFilter represents filter options for the booking list
type BookingListFilter struct {
	RoomID    *uuid.UUID
	TenantID  *uuid.UUID
	IsRolling *bool
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// TransactionListFilter represents filter options for the ledger list
type TransactionListFilter struct {
	Category  *booking.TransactionCategory
	BookingID *uuid.UUID
	PaymentID *uuid.UUID
	DepositID *uuid.UUID
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// BookingAddOnResponse represents an add-on association in API responses
type BookingAddOnResponse struct {
	ID        uuid.UUID  `json:"id"`
	AddOnID   uuid.UUID  `json:"addon_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                uuid.UUID              `json:"id"`
	RoomID            uuid.UUID              `json:"room_id"`
	TenantID          uuid.UUID              `json:"tenant_id"`
	StartDate         time.Time              `json:"start_date"`
	EndDate           *time.Time             `json:"end_date,omitempty"`
	DurationID        *uuid.UUID             `json:"duration_id,omitempty"`
	MonthCount        int                    `json:"month_count"`
	Fee               decimal.Decimal        `json:"fee"`
	SecondResidentFee *decimal.Decimal       `json:"second_resident_fee,omitempty"`
	IsRolling         bool                   `json:"is_rolling"`
	AddOns            []BookingAddOnResponse `json:"addons"`
	Deposit           *DepositResponse       `json:"deposit,omitempty"`
	Bills             []BillResponse         `json:"bills,omitempty"`
	Version           int                    `json:"version"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ToBookingResponse converts a domain booking to a response
func ToBookingResponse(b *booking.Booking) BookingResponse {
	addOns := make([]BookingAddOnResponse, 0, len(b.AddOns))
	for _, a := range b.AddOns {
		addOns = append(addOns, BookingAddOnResponse{
			ID:        a.ID,
			AddOnID:   a.AddOnID,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
		})
	}
	return BookingResponse{
		ID:                b.ID,
		RoomID:            b.RoomID,
		TenantID:          b.TenantID,
		StartDate:         b.StartDate,
		EndDate:           b.EndDate,
		DurationID:        b.DurationID,
		MonthCount:        b.MonthCount,
		Fee:               b.Fee,
		SecondResidentFee: b.SecondResidentFee,
		IsRolling:         b.IsRolling,
		AddOns:            addOns,
		Version:           b.Version,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// DepositResponse represents a deposit in API responses
type DepositResponse struct {
	ID             uuid.UUID        `json:"id"`
	BookingID      uuid.UUID        `json:"booking_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Status         string           `json:"status"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	RefundedAt     *time.Time       `json:"refunded_at,omitempty"`
	RefundedAmount *decimal.Decimal `json:"refunded_amount,omitempty"`
}

// ToDepositResponse converts a deposit, returning nil for nil
func ToDepositResponse(d *booking.Deposit) *DepositResponse {
	if d == nil {
		return nil
	}
	return &DepositResponse{
		ID:             d.ID,
		BookingID:      d.BookingID,
		Amount:         d.Amount,
		Status:         d.Status.String(),
		AppliedAt:      d.AppliedAt,
		RefundedAt:     d.RefundedAt,
		RefundedAmount: d.RefundedAmount,
	}
}

// BillItemResponse represents a bill item in API responses
type BillItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Related     string          `json:"related,omitempty"`
}

// BillResponse represents a bill with its payment progress
type BillResponse struct {
	ID          uuid.UUID          `json:"id"`
	BookingID   uuid.UUID          `json:"booking_id"`
	DueDate     time.Time          `json:"due_date"`
	Description string             `json:"description"`
	Items       []BillItemResponse `json:"items"`
	Total       decimal.Decimal    `json:"total"`
	Paid        decimal.Decimal    `json:"paid"`
	Outstanding decimal.Decimal    `json:"outstanding"`
}

// ToBillResponses converts bills, computing paid amounts from the given payments
func ToBillResponses(bills []*booking.Bill, payments []*booking.Payment) []BillResponse {
	paid := make(map[uuid.UUID]decimal.Decimal, len(bills))
	for _, p := range payments {
		for _, a := range p.Allocations {
			paid[a.BillID] = paid[a.BillID].Add(a.Amount)
		}
	}

	responses := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		items := make([]BillItemResponse, 0, len(b.Items))
		for _, item := range b.Items {
			resp := BillItemResponse{
				ID:          item.ID,
				Description: item.Description,
				Amount:      item.Amount,
				Type:        item.Type.String(),
			}
			if item.Related != nil {
				resp.Related = item.Related.String()
			}
			items = append(items, resp)
		}
		total := b.Total()
		billPaid := paid[b.ID]
		responses = append(responses, BillResponse{
			ID:          b.ID,
			BookingID:   b.BookingID,
			DueDate:     b.DueDate,
			Description: b.Description,
			Items:       items,
			Total:       total,
			Paid:        billPaid,
			Outstanding: decimal.Max(total.Sub(billPaid), decimal.Zero),
		})
	}
	return responses
}

// PaymentAllocationResponse is one bill allocation of a payment
type PaymentAllocationResponse struct {
	BillID uuid.UUID       `json:"bill_id"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          uuid.UUID                   `json:"id"`
	BookingID   uuid.UUID                   `json:"booking_id"`
	Amount      decimal.Decimal             `json:"amount"`
	PaymentDate time.Time                   `json:"payment_date"`
	Status      string                      `json:"status"`
	Method      string                      `json:"method,omitempty"`
	Reference   string                      `json:"reference,omitempty"`
	Allocated   decimal.Decimal             `json:"allocated"`
	Unallocated decimal.Decimal             `json:"unallocated"`
	Allocations []PaymentAllocationResponse `json:"allocations"`
	Version     int                         `json:"version"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *booking.Payment) PaymentResponse {
	allocations := make([]PaymentAllocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, PaymentAllocationResponse{BillID: a.BillID, Amount: a.Amount})
	}
	return PaymentResponse{
		ID:          p.ID,
		BookingID:   p.BookingID,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Status:      p.Status.String(),
		Method:      p.Method,
		Reference:   p.Reference,
		Allocated:   p.AllocatedAmount(),
		Unallocated: p.UnallocatedAmount(),
		Allocations: allocations,
		Version:     p.Version,
	}
}

// RelatedTagResponse is one related tag of a ledger row
type RelatedTagResponse struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// TransactionResponse represents a ledger row in API responses
type TransactionResponse struct {
	ID          uuid.UUID            `json:"id"`
	Amount      decimal.Decimal      `json:"amount"`
	Date        time.Time            `json:"date"`
	Category    string               `json:"category"`
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Related     []RelatedTagResponse `json:"related"`
}

// ToTransactionResponse converts a ledger row to a response
func ToTransactionResponse(tx *booking.Transaction) TransactionResponse {
	related := make([]RelatedTagResponse, 0, len(tx.Tags))
	for _, t := range tx.Tags {
		related = append(related, RelatedTagResponse{Kind: t.Kind.String(), ID: t.ID})
	}
	return TransactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Date:        tx.Date,
		Category:    tx.Category.String(),
		Type:        tx.Type.String(),
		Description: tx.Description,
		Related:     related,
	}
}

// ToTransactionResponses converts a list of ledger rows
func ToTransactionResponses(txs []*booking.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, ToTransactionResponse(tx))
	}
	return responses
}

// LedgerChanges counts the ledger writes of one reconciliation
type LedgerChanges struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// UpsertBookingResult is the outcome of creating or updating a booking
type UpsertBookingResult struct {
	Booking             BookingResponse `json:"booking"`
	Created             bool            `json:"created"`
	BillsGenerated      int             `json:"bills_generated"`
	PaymentsReallocated int             `json:"payments_reallocated"`
	Ledger              LedgerChanges   `json:"ledger"`
}

// DeleteBookingResult is the outcome of deleting a booking
type DeleteBookingResult struct {
	BookingID           uuid.UUID `json:"booking_id"`
	RemovedBills        int       `json:"removed_bills"`
	RemovedPayments     int       `json:"removed_payments"`
	RemovedTransactions int       `json:"removed_transactions"`
	Warning             string    `json:"warning,omitempty"`
}

// ExtendBillsResult lists the bills added to a rolling booking
type ExtendBillsResult struct {
	BookingID uuid.UUID      `json:"booking_id"`
	Added     []BillResponse `json:"added"`
}

// UpsertPaymentResult is the outcome of recording or revising a payment
type UpsertPaymentResult struct {
	Payment PaymentResponse  `json:"payment"`
	Created bool             `json:"created"`
	Deposit *DepositResponse `json:"deposit,omitempty"`
	Ledger  LedgerChanges    `json:"ledger"`
}

// DeletePaymentResult is the outcome of deleting a payment
type DeletePaymentResult struct {
	PaymentID uuid.UUID        `json:"payment_id"`
	BookingID uuid.UUID        `json:"booking_id"`
	Deposit   *DepositResponse `json:"deposit,omitempty"`
	Ledger    LedgerChanges    `json:"ledger"`
}

// SimulationAllocation is one previewed allocation
type SimulationAllocation struct {
	BillID      uuid.UUID       `json:"bill_id"`
	Description string          `json:"description"`
	DueDate     time.Time       `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	DueBefore   decimal.Decimal `json:"due_before"`
	DueAfter    decimal.Decimal `json:"due_after"`
}

// SimulatePaymentResult previews how a payment would be allocated
type SimulatePaymentResult struct {
	BookingID          uuid.UUID              `json:"booking_id"`
	Amount             decimal.Decimal        `json:"amount"`
	Mode               string                 `json:"mode"`
	Allocations        []SimulationAllocation `json:"allocations"`
	TotalAllocated     decimal.Decimal        `json:"total_allocated"`
	RemainingAmount    decimal.Decimal        `json:"remaining_amount"`
	FullyAllocated     bool                   `json:"fully_allocated"`
	BillsFullyPaid     []uuid.UUID            `json:"bills_fully_paid"`
	BillsPartiallyPaid []uuid.UUID            `json:"bills_partially_paid"`
	TotalOutstanding   decimal.Decimal        `json:"total_outstanding"`
}

func toSimulatePaymentResult(bookingID uuid.UUID, amount decimal.Decimal, mode booking.AllocationMode, r *booking.AllocationResult, outstanding decimal.Decimal) *SimulatePaymentResult {
	allocations := make([]SimulationAllocation, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		allocations = append(allocations, SimulationAllocation{
			BillID:      a.BillID,
			Description: a.Description,
			DueDate:     a.DueDate,
			Amount:      a.Amount,
			DueBefore:   a.DueBefore,
			DueAfter:    a.DueAfter,
		})
	}
	return &SimulatePaymentResult{
		BookingID:          bookingID,
		Amount:             amount,
		Mode:               mode.String(),
		Allocations:        allocations,
		TotalAllocated:     r.TotalAllocated,
		RemainingAmount:    r.RemainingAmount,
		FullyAllocated:     r.FullyAllocated,
		BillsFullyPaid:     r.BillsFullyPaid,
		BillsPartiallyPaid: r.BillsPartiallyPaid,
		TotalOutstanding:   outstanding,
	}
}

// DeleteTransactionResult is the outcome of removing a ledger row
type DeleteTransactionResult struct {
	TransactionID  uuid.UUID        `json:"transaction_id"`
	Category       string           `json:"category"`
	PaymentDeleted *uuid.UUID       `json:"payment_deleted,omitempty"`
	Deposit        *DepositResponse `json:"deposit,omitempty"`
	Ledger         LedgerChanges    `json:"ledger"`
}
