package booking

import (
	"fmt"
	"time"

	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillGenerator turns a booking's terms into bills
type BillGenerator struct{}

// NewBillGenerator creates a new bill generator
func NewBillGenerator() *BillGenerator {
	return &BillGenerator{}
}

// GenerationInput carries everything a generation run depends on
type GenerationInput struct {
	Booking *Booking
	Deposit *Deposit // nil when no deposit was requested
	Catalog AddOnCatalog
	Today   time.Time
}

// Generate builds the complete bill set for a booking. The result depends only on the input,
// so running it twice with the same parameters yields the same bills and items.
func (g *BillGenerator) Generate(in GenerationInput) ([]*Bill, error) {
	periods, err := g.periods(in)
	if err != nil {
		return nil, err
	}
	bills := make([]*Bill, 0, len(periods))
	for _, p := range periods {
		bill, err := g.billFor(in, p, p.Index == 0)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

// Extend builds bills for periods due after lastDueDate. Existing bills are not touched and
// the deposit item is never added, since it belongs on the earliest bill only.
func (g *BillGenerator) Extend(in GenerationInput, lastDueDate time.Time) ([]*Bill, error) {
	periods, err := g.periods(in)
	if err != nil {
		return nil, err
	}
	last := DateOf(lastDueDate)
	bills := make([]*Bill, 0)
	for _, p := range periods {
		if !p.DueDate.After(last) {
			continue
		}
		bill, err := g.billFor(in, p, false)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (g *BillGenerator) periods(in GenerationInput) ([]Period, error) {
	if in.Booking == nil {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking is required for bill generation")
	}
	periods, err := CalculatePeriods(in.Booking.Term(), in.Today)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TERM", err.Error())
	}
	return periods, nil
}

func (g *BillGenerator) billFor(in GenerationInput, p Period, withDeposit bool) (*Bill, error) {
	b := in.Booking
	bill := NewBill(b.ID, p.DueDate, fmt.Sprintf("Bill for %s", p.Label()))

	bill.AddItem(g.describe("Room rent", p), p.Prorate(b.Fee, RentPlaces), BillItemTypeGenerated, nil)

	if b.SecondResidentFee != nil {
		bill.AddItem(g.describe("Second resident fee", p), p.Prorate(*b.SecondResidentFee, RentPlaces), BillItemTypeGenerated, nil)
	}

	for _, ba := range b.AddOns {
		if !ba.ActiveIn(p) {
			continue
		}
		addOn, ok := in.Catalog[ba.AddOnID]
		if !ok {
			return nil, shared.NewDomainError("ADDON_NOT_FOUND", fmt.Sprintf("Add-on %s not found", ba.AddOnID))
		}
		description, amount, ok := g.addOnCharge(addOn, ba, p)
		if !ok {
			continue
		}
		bill.AddItem(description, amount, BillItemTypeGenerated, nil)
	}

	if withDeposit && in.Deposit != nil {
		tag := DepositTag(in.Deposit.ID)
		bill.AddItem("Deposit", in.Deposit.Amount, BillItemTypeGenerated, &tag)
	}
	return bill, nil
}

// addOnCharge prices an add-on for one period. Monthly tiers are prorated over the days the
// add-on is active in its first month; full-payment tiers are charged once, in full, when the
// tier begins.
func (g *BillGenerator) addOnCharge(addOn *AddOn, ba BookingAddOn, p Period) (string, decimal.Decimal, bool) {
	elapsed := ba.ElapsedMonths(p)
	tier, ok := addOn.TierFor(elapsed)
	if !ok {
		return "", decimal.Zero, false
	}
	if tier.IsFullPayment {
		if elapsed != tier.IntervalStart {
			return "", decimal.Zero, false
		}
		return fmt.Sprintf("%s %s (full payment)", addOn.Name, p.Label()), tier.Price, true
	}

	active := p
	if start := DateOf(ba.StartDate); start.After(p.Start) {
		active.Start = start
		active.Days = p.DaysInMonth - start.Day() + 1
	}
	return g.describe(addOn.Name, active), active.Prorate(tier.Price, AddOnPlaces), true
}

func (g *BillGenerator) describe(label string, p Period) string {
	if p.Prorated() {
		return fmt.Sprintf("%s %s (%s)", label, p.Label(), p.ProrataMarker())
	}
	return fmt.Sprintf("%s %s", label, p.Label())
}

// LastDueDate returns the latest due date among bills
func LastDueDate(bills []*Bill) (time.Time, bool) {
	var last time.Time
	for _, b := range bills {
		if b.DueDate.After(last) {
			last = b.DueDate
		}
	}
	return last, !last.IsZero()
}
