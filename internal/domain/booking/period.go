package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Term describes how long a booking is billed for.
// MonthCount > 0 is a fixed term. MonthCount == 0 is rolling: billed month by month
// until EndDate, or up to the current month while EndDate is nil.
type Term struct {
	StartDate  time.Time
	MonthCount int
	EndDate    *time.Time
}

// IsRolling returns true when the term has no fixed month count
func (t Term) IsRolling() bool {
	return t.MonthCount <= 0
}

// Period is one billed calendar month.
type Period struct {
	Index       int       // 0-based position within the booking
	Start       time.Time // first billed day
	DueDate     time.Time // last calendar day of the month
	Days        int       // billed days in the month
	DaysInMonth int
}

// Prorated returns true if the period does not cover its whole month
func (p Period) Prorated() bool {
	return p.Days < p.DaysInMonth
}

// Fraction returns billed days over days in month
func (p Period) Fraction() decimal.Decimal {
	if !p.Prorated() {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(p.Days)).Div(decimal.NewFromInt(int64(p.DaysInMonth)))
}

// Prorate scales a full-month amount to the period and rounds half-up.
// The multiplication happens before the division so 1,000,000 × 17/31 rounds to 548,387.
func (p Period) Prorate(amount decimal.Decimal, places int32) decimal.Decimal {
	if !p.Prorated() {
		return amount
	}
	scaled := amount.Mul(decimal.NewFromInt(int64(p.Days))).Div(decimal.NewFromInt(int64(p.DaysInMonth)))
	return RoundHalfUp(scaled, places)
}

// Label returns the month label used in descriptions, e.g. "January 2024"
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.DueDate.Month(), p.DueDate.Year())
}

// ProrataMarker returns the marker appended to prorated item descriptions
func (p Period) ProrataMarker() string {
	return fmt.Sprintf("PRORATA %d/%d", p.Days, p.DaysInMonth)
}

// CalculatePeriods splits a term into monthly billing periods.
// today bounds open-ended rolling terms; a rolling term that starts in the future still
// yields its first period.
func CalculatePeriods(term Term, today time.Time) ([]Period, error) {
	if term.StartDate.IsZero() {
		return nil, fmt.Errorf("start date is required")
	}
	start := DateOf(term.StartDate)
	first := MonthStart(start)

	var count int
	if !term.IsRolling() {
		count = term.MonthCount
		if start.Day() != 1 {
			count++
		}
	} else {
		last := MonthStart(DateOf(today))
		if term.EndDate != nil {
			last = MonthStart(DateOf(*term.EndDate))
		}
		count = MonthsBetween(first, last) + 1
		if count < 1 {
			count = 1
		}
	}

	periods := make([]Period, 0, count)
	for i := 0; i < count; i++ {
		month := first.AddDate(0, i, 0)
		dim := DaysInMonth(month)
		periodStart := month
		if i == 0 {
			periodStart = start
		}
		periods = append(periods, Period{
			Index:       i,
			Start:       periodStart,
			DueDate:     EndOfMonth(month),
			Days:        dim - periodStart.Day() + 1,
			DaysInMonth: dim,
		})
	}
	return periods, nil
}

// FixedEndDate returns the last billed day of a fixed term: the due date of its final period.
func FixedEndDate(start time.Time, monthCount int) time.Time {
	months := monthCount
	if DateOf(start).Day() == 1 {
		months--
	}
	return EndOfMonth(MonthStart(DateOf(start)).AddDate(0, months, 0))
}

// DateOf truncates t to a UTC calendar date, keeping its wall-clock year, month and day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last calendar day of t's month
func EndOfMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in t's month
func DaysInMonth(t time.Time) int {
	return EndOfMonth(t).Day()
}

// MonthsBetween returns the number of whole calendar months from a's month to b's month.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
