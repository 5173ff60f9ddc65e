package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentOn(bookingID uuid.UUID, amount int64, on time.Time) *Payment {
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookingID:         bookingID,
		Amount:            decimal.NewFromInt(amount),
		PaymentDate:       on,
		Status:            PaymentStatusConfirmed,
	}
}

func allocate(t *testing.T, p *Payment, bills []*Bill, others ...*Payment) {
	t.Helper()
	targets := BuildAllocationTargets(bills, append(others, p), p.ID)
	result, err := NewAutoAllocationStrategy().Allocate(p.Amount, targets)
	require.NoError(t, err)
	require.NoError(t, p.ReplaceAllocations(result))
}

func applyPlan(existing []*Transaction, plan LedgerPlan) []*Transaction {
	deleted := make(map[uuid.UUID]bool)
	for _, tx := range plan.Delete {
		deleted[tx.ID] = true
	}
	out := make([]*Transaction, 0, len(existing)+len(plan.Create))
	for _, tx := range existing {
		if !deleted[tx.ID] {
			out = append(out, tx)
		}
	}
	return append(out, plan.Create...)
}

func TestSplitFunding_DepositFirst(t *testing.T) {
	bookingID := uuid.New()
	depositID := uuid.New()
	bill := NewBill(bookingID, date(2024, 1, 31), "Bill for January 2024")
	bill.AddItem("Room rent January 2024", decimal.NewFromInt(1000000), BillItemTypeGenerated, nil)
	tag := DepositTag(depositID)
	bill.AddItem("Deposit", decimal.NewFromInt(500000), BillItemTypeGenerated, &tag)

	early := paymentOn(bookingID, 300000, date(2024, 1, 5))
	late := paymentOn(bookingID, 1200000, date(2024, 1, 20))
	early.Allocations = []PaymentBill{{BillID: bill.ID, Amount: decimal.NewFromInt(300000)}}
	late.Allocations = []PaymentBill{{BillID: bill.ID, Amount: decimal.NewFromInt(1200000)}}

	// argument order must not matter
	split := SplitFunding([]*Bill{bill}, []*Payment{late, early})

	assert.True(t, split.ByPayment[early.ID][CategoryDeposit].Equal(decimal.NewFromInt(300000)))
	assert.True(t, split.ByPayment[early.ID][CategoryRoomPayment].IsZero())
	assert.True(t, split.ByPayment[late.ID][CategoryDeposit].Equal(decimal.NewFromInt(200000)))
	assert.True(t, split.ByPayment[late.ID][CategoryRoomPayment].Equal(decimal.NewFromInt(1000000)))
	assert.True(t, split.DepositFunded.Equal(decimal.NewFromInt(500000)))
	assert.True(t, split.DepositFullyFunded())
}

func TestSplitFunding_NoDeposit(t *testing.T) {
	bookingID := uuid.New()
	bill := NewBill(bookingID, date(2024, 1, 31), "Bill for January 2024")
	bill.AddItem("Room rent January 2024", decimal.NewFromInt(1000000), BillItemTypeGenerated, nil)
	p := paymentOn(bookingID, 400000, date(2024, 1, 5))
	p.Allocations = []PaymentBill{{BillID: bill.ID, Amount: decimal.NewFromInt(400000)}}

	split := SplitFunding([]*Bill{bill}, []*Payment{p})
	assert.True(t, split.ByPayment[p.ID].Total().Equal(decimal.NewFromInt(400000)))
	assert.False(t, split.DepositFullyFunded())
}

// An updated payment must update its ledger row in place rather than stacking a second one.
func TestPlanPaymentLedger_UpdateInPlace(t *testing.T) {
	bookingID := uuid.New()
	bills := make([]*Bill, 0, 3)
	for m := 1; m <= 3; m++ {
		b := NewBill(bookingID, EndOfMonth(date(2024, time.Month(m), 1)), "bill")
		b.AddItem("Room rent", decimal.NewFromInt(2250000), BillItemTypeGenerated, nil)
		bills = append(bills, b)
	}

	p := paymentOn(bookingID, 5600000, date(2024, 1, 3))
	allocate(t, p, bills)
	split := SplitFunding(bills, []*Payment{p})
	plan := PlanPaymentLedger(p, split.ByPayment[p.ID], nil, nil)
	require.Len(t, plan.Create, 1)
	ledger := applyPlan(nil, plan)
	original := ledger[0]
	assert.True(t, original.Amount.Equal(decimal.NewFromInt(5600000)))
	assert.True(t, original.Tags.Has(PaymentTag(p.ID)))
	assert.True(t, original.Tags.Has(BookingTag(bookingID)))

	require.NoError(t, p.Amend(decimal.NewFromInt(6750000), p.PaymentDate, PaymentStatusConfirmed))
	allocate(t, p, bills)
	require.Len(t, p.Allocations, 3)
	for _, a := range p.Allocations {
		assert.True(t, a.Amount.Equal(decimal.NewFromInt(2250000)))
	}

	split = SplitFunding(bills, []*Payment{p})
	plan = PlanPaymentLedger(p, split.ByPayment[p.ID], nil, ledger)
	assert.Empty(t, plan.Create)
	assert.Empty(t, plan.Delete)
	require.Len(t, plan.Update, 1)
	assert.Equal(t, original.ID, plan.Update[0].ID)
	assert.True(t, plan.Update[0].Amount.Equal(decimal.NewFromInt(6750000)))

	ledger = applyPlan(ledger, plan)
	assert.Len(t, ledger, 1)

	// nothing changed, nothing to do
	assert.True(t, PlanPaymentLedger(p, split.ByPayment[p.ID], nil, ledger).IsEmpty())
}

func TestPlanPaymentLedger_CategoriesAndDuplicates(t *testing.T) {
	bookingID := uuid.New()
	depositID := uuid.New()
	p := paymentOn(bookingID, 1500000, date(2024, 1, 3))

	amounts := CategoryAmounts{
		CategoryRoomPayment: decimal.NewFromInt(1000000),
		CategoryDeposit:     decimal.NewFromInt(500000),
	}
	plan := PlanPaymentLedger(p, amounts, &depositID, nil)
	require.Len(t, plan.Create, 2)
	for _, tx := range plan.Create {
		if tx.Category == CategoryDeposit {
			id, ok := tx.DepositID()
			require.True(t, ok)
			assert.Equal(t, depositID, id)
		}
		assert.Equal(t, TransactionTypeIncome, tx.Type)
	}
	ledger := applyPlan(nil, plan)

	stale := NewTransaction(CategoryRoomPayment, decimal.NewFromInt(1), p.PaymentDate, "stale", PaymentTag(p.ID))
	unrelated := NewTransaction(CategoryRoomPayment, decimal.NewFromInt(1), p.PaymentDate, "other", PaymentTag(uuid.New()))
	ledger = append(ledger, stale, unrelated)

	// deposit share disappears, rent stays
	plan = PlanPaymentLedger(p, CategoryAmounts{CategoryRoomPayment: decimal.NewFromInt(1000000)}, &depositID, ledger)
	assert.Empty(t, plan.Create)
	assert.Empty(t, plan.Update)
	require.Len(t, plan.Delete, 2)
	deletedCategories := []TransactionCategory{plan.Delete[0].Category, plan.Delete[1].Category}
	assert.Contains(t, deletedCategories, CategoryDeposit)
	assert.Contains(t, deletedCategories, CategoryRoomPayment)
	for _, tx := range plan.Delete {
		assert.NotEqual(t, unrelated.ID, tx.ID)
	}
}

func TestPlanDepositRefundLedger(t *testing.T) {
	at := date(2024, 6, 1)
	d := heldDeposit(t)

	assert.True(t, PlanDepositRefundLedger(d, nil).IsEmpty())

	part := decimal.NewFromInt(200000)
	require.NoError(t, d.TransitionTo(DepositStatusPartiallyRefunded, &part, at))
	plan := PlanDepositRefundLedger(d, nil)
	require.Len(t, plan.Create, 1)
	refund := plan.Create[0]
	assert.Equal(t, CategoryDepositRefund, refund.Category)
	assert.Equal(t, TransactionTypeExpense, refund.Type)
	assert.True(t, refund.Amount.Equal(part))
	ledger := applyPlan(nil, plan)

	assert.True(t, PlanDepositRefundLedger(d, ledger).IsEmpty())

	d.RevertRefund(true)
	plan = PlanDepositRefundLedger(d, ledger)
	require.Len(t, plan.Delete, 1)
	assert.Equal(t, refund.ID, plan.Delete[0].ID)
}
