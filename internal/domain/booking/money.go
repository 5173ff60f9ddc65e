package booking

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// RentPlaces is the rounding precision for rent and second resident fees (whole rupiah).
	RentPlaces int32 = 0
	// AddOnPlaces is the rounding precision for prorated add-on charges.
	AddOnPlaces int32 = 2
)

var amountPrinter = message.NewPrinter(language.Indonesian)

// RoundHalfUp rounds a non-negative amount half-up to the given number of decimal places.
// decimal.Round rounds half away from zero, which equals half-up for the amounts billed here.
func RoundHalfUp(amount decimal.Decimal, places int32) decimal.Decimal {
	return amount.Round(places)
}

// FormatAmount renders an amount with Indonesian digit grouping, e.g. "Rp1.000.000".
func FormatAmount(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return amountPrinter.Sprintf("Rp%d", amount.IntPart())
	}
	return amountPrinter.Sprintf("Rp%.2f", amount.InexactFloat64())
}

func sumAmounts(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
