package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Duration is a catalog entry for fixed booking lengths
type Duration struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	MonthCount int       `json:"month_count"`
}

// AddOnPricing is one price tier of an add-on.
// The tier applies while the months elapsed since the add-on started fall in
// [IntervalStart, IntervalEnd]; a nil IntervalEnd is open-ended. Elapsed months are 0-based.
type AddOnPricing struct {
	ID            uuid.UUID       `json:"id"`
	AddOnID       uuid.UUID       `json:"addon_id"`
	IntervalStart int             `json:"interval_start"`
	IntervalEnd   *int            `json:"interval_end,omitempty"`
	Price         decimal.Decimal `json:"price"`
	IsFullPayment bool            `json:"is_full_payment"` // charged once when the tier begins
}

// Covers returns true if the tier applies at the given elapsed month
func (p AddOnPricing) Covers(elapsed int) bool {
	if elapsed < p.IntervalStart {
		return false
	}
	return p.IntervalEnd == nil || elapsed <= *p.IntervalEnd
}

// AddOn is an optional extra charged alongside rent (parking, laundry, ...)
type AddOn struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	Pricing []AddOnPricing `json:"pricing"`
}

// TierFor returns the pricing tier for the elapsed month, preferring the narrowest start
func (a *AddOn) TierFor(elapsed int) (*AddOnPricing, bool) {
	var found *AddOnPricing
	for i := range a.Pricing {
		tier := &a.Pricing[i]
		if !tier.Covers(elapsed) {
			continue
		}
		if found == nil || tier.IntervalStart > found.IntervalStart {
			found = tier
		}
	}
	return found, found != nil
}

// AddOnCatalog indexes add-ons by id
type AddOnCatalog map[uuid.UUID]*AddOn

// NewAddOnCatalog builds a catalog from a list of add-ons
func NewAddOnCatalog(addOns []AddOn) AddOnCatalog {
	catalog := make(AddOnCatalog, len(addOns))
	for i := range addOns {
		catalog[addOns[i].ID] = &addOns[i]
	}
	return catalog
}

// BookingAddOn attaches an add-on to a booking for a validity window
type BookingAddOn struct {
	ID        uuid.UUID  `json:"id"`
	BookingID uuid.UUID  `json:"booking_id"`
	AddOnID   uuid.UUID  `json:"addon_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Validate checks the validity window
func (ba BookingAddOn) Validate() error {
	if ba.AddOnID == uuid.Nil {
		return fmt.Errorf("add-on id is required")
	}
	if ba.StartDate.IsZero() {
		return fmt.Errorf("add-on start date is required")
	}
	if ba.EndDate != nil && DateOf(*ba.EndDate).Before(DateOf(ba.StartDate)) {
		return fmt.Errorf("add-on end date is before its start date")
	}
	return nil
}

// ActiveIn returns true if the add-on validity overlaps the period
func (ba BookingAddOn) ActiveIn(p Period) bool {
	start := DateOf(ba.StartDate)
	if start.After(p.DueDate) {
		return false
	}
	return ba.EndDate == nil || !DateOf(*ba.EndDate).Before(p.Start)
}

// ElapsedMonths returns the 0-based month index of the period relative to the add-on start
func (ba BookingAddOn) ElapsedMonths(p Period) int {
	return MonthsBetween(MonthStart(DateOf(ba.StartDate)), MonthStart(p.DueDate))
}
