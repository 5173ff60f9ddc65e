package booking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryAmounts is the allocated amount of one payment per ledger category
type CategoryAmounts map[TransactionCategory]decimal.Decimal

// Total returns the sum over all categories
func (c CategoryAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range c {
		total = total.Add(v)
	}
	return total
}

// FundingSplit is how a booking's allocations break down into ledger categories
type FundingSplit struct {
	ByPayment     map[uuid.UUID]CategoryAmounts
	DepositFunded decimal.Decimal // how much of the deposit item is paid
	DepositDue    decimal.Decimal // the deposit item amount, zero without one
}

// DepositFullyFunded returns true if a deposit item exists and is completely paid
func (s FundingSplit) DepositFullyFunded() bool {
	return s.DepositDue.IsPositive() && s.DepositFunded.GreaterThanOrEqual(s.DepositDue)
}

// SplitFunding attributes every allocation of a booking to a ledger category.
// Within a bill the deposit item is settled first, by payments in payment-date order, so the
// split is deterministic no matter which payment was written last.
func SplitFunding(bills []*Bill, payments []*Payment) FundingSplit {
	split := FundingSplit{
		ByPayment:     make(map[uuid.UUID]CategoryAmounts, len(payments)),
		DepositFunded: decimal.Zero,
		DepositDue:    decimal.Zero,
	}

	ordered := make([]*Payment, len(payments))
	copy(ordered, payments)
	SortPaymentsByDate(ordered)

	depositLeft := make(map[uuid.UUID]decimal.Decimal, len(bills))
	for _, b := range bills {
		if dep := b.DepositAmount(); dep.IsPositive() {
			depositLeft[b.ID] = dep
			split.DepositDue = split.DepositDue.Add(dep)
		}
	}

	for _, p := range ordered {
		amounts := make(CategoryAmounts)
		for _, a := range p.Allocations {
			regular := a.Amount
			if left, ok := depositLeft[a.BillID]; ok && left.IsPositive() {
				toDeposit := decimal.Min(left, a.Amount)
				depositLeft[a.BillID] = left.Sub(toDeposit)
				split.DepositFunded = split.DepositFunded.Add(toDeposit)
				amounts[CategoryDeposit] = amounts[CategoryDeposit].Add(toDeposit)
				regular = a.Amount.Sub(toDeposit)
			}
			if regular.IsPositive() {
				amounts[CategoryRoomPayment] = amounts[CategoryRoomPayment].Add(regular)
			}
		}
		split.ByPayment[p.ID] = amounts
	}
	return split
}

// LedgerPlan lists the ledger writes needed to mirror a source record
type LedgerPlan struct {
	Create []*Transaction
	Update []*Transaction
	Delete []*Transaction
}

// IsEmpty returns true when nothing needs to change
func (p LedgerPlan) IsEmpty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Merge appends another plan
func (p *LedgerPlan) Merge(other LedgerPlan) {
	p.Create = append(p.Create, other.Create...)
	p.Update = append(p.Update, other.Update...)
	p.Delete = append(p.Delete, other.Delete...)
}

// PlanPaymentLedger diffs the wanted per-category amounts of a payment against its existing
// ledger rows. Rows are matched only by the stable (payment id, category) key; a second row
// for the same key is treated as stale and deleted.
func PlanPaymentLedger(p *Payment, amounts CategoryAmounts, depositID *uuid.UUID, existing []*Transaction) LedgerPlan {
	plan := LedgerPlan{}
	byCategory := make(map[TransactionCategory]*Transaction)
	for _, tx := range existing {
		if pid, ok := tx.PaymentID(); !ok || pid != p.ID {
			continue
		}
		if _, dup := byCategory[tx.Category]; dup {
			plan.Delete = append(plan.Delete, tx)
			continue
		}
		byCategory[tx.Category] = tx
	}

	for _, category := range []TransactionCategory{CategoryRoomPayment, CategoryDeposit} {
		want := amounts[category]
		current, exists := byCategory[category]
		delete(byCategory, category)

		switch {
		case !want.IsPositive() && exists:
			plan.Delete = append(plan.Delete, current)
		case !want.IsPositive():
		case exists:
			if !current.Matches(want, p.PaymentDate) {
				current.Amount = want
				current.Date = p.PaymentDate
				current.Touch()
				plan.Update = append(plan.Update, current)
			}
		default:
			tags := []RelatedTag{PaymentTag(p.ID), BookingTag(p.BookingID)}
			if category == CategoryDeposit && depositID != nil {
				tags = append(tags, DepositTag(*depositID))
			}
			plan.Create = append(plan.Create, NewTransaction(category, want, p.PaymentDate,
				fmt.Sprintf("%s from payment %s", category.DisplayName(), p.ID), tags...))
		}
	}

	// categories this payment no longer produces at all
	for _, tx := range byCategory {
		plan.Delete = append(plan.Delete, tx)
	}
	return plan
}

// PlanDepositRefundLedger keeps exactly one refund row per refunded deposit and none otherwise
func PlanDepositRefundLedger(d *Deposit, existing []*Transaction) LedgerPlan {
	plan := LedgerPlan{}
	var current *Transaction
	for _, tx := range existing {
		if tx.Category != CategoryDepositRefund {
			continue
		}
		if id, ok := tx.DepositID(); !ok || id != d.ID {
			continue
		}
		if current != nil {
			plan.Delete = append(plan.Delete, tx)
			continue
		}
		current = tx
	}

	refunded := d.Status.IsRefunded() && d.RefundedAmount != nil && d.RefundedAt != nil
	switch {
	case !refunded && current != nil:
		plan.Delete = append(plan.Delete, current)
	case !refunded:
	case current != nil:
		if !current.Matches(*d.RefundedAmount, *d.RefundedAt) {
			current.Amount = *d.RefundedAmount
			current.Date = *d.RefundedAt
			current.Touch()
			plan.Update = append(plan.Update, current)
		}
	default:
		plan.Create = append(plan.Create, NewTransaction(CategoryDepositRefund, *d.RefundedAmount, *d.RefundedAt,
			fmt.Sprintf("Deposit refund for booking %s", d.BookingID),
			DepositTag(d.ID), BookingTag(d.BookingID)))
	}
	return plan
}
