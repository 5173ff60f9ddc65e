package booking

import (
	"fmt"

	"github.com/google/uuid"
)

// RelatedKind identifies what a related tag points at
type RelatedKind string

const (
	RelatedKindPayment RelatedKind = "PAYMENT"
	RelatedKindDeposit RelatedKind = "DEPOSIT"
	RelatedKindBooking RelatedKind = "BOOKING"
)

// IsValid checks if the kind is a valid RelatedKind
func (k RelatedKind) IsValid() bool {
	switch k {
	case RelatedKindPayment, RelatedKindDeposit, RelatedKindBooking:
		return true
	}
	return false
}

// String returns the string representation of RelatedKind
func (k RelatedKind) String() string {
	return string(k)
}

// RelatedTag is a typed pointer from a ledger row or bill item to the record it came from.
// It is a lookup key only; the referenced row may already be gone.
type RelatedTag struct {
	Kind RelatedKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
}

// PaymentTag tags a record with a payment
func PaymentTag(id uuid.UUID) RelatedTag {
	return RelatedTag{Kind: RelatedKindPayment, ID: id}
}

// DepositTag tags a record with a deposit
func DepositTag(id uuid.UUID) RelatedTag {
	return RelatedTag{Kind: RelatedKindDeposit, ID: id}
}

// BookingTag tags a record with a booking
func BookingTag(id uuid.UUID) RelatedTag {
	return RelatedTag{Kind: RelatedKindBooking, ID: id}
}

// String renders the tag as KIND:id
func (t RelatedTag) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Tags is a set of related tags carried by one record
type Tags []RelatedTag

// Find returns the first tag of the given kind
func (ts Tags) Find(kind RelatedKind) (uuid.UUID, bool) {
	for _, t := range ts {
		if t.Kind == kind {
			return t.ID, true
		}
	}
	return uuid.Nil, false
}

// Has reports whether the set contains the exact tag
func (ts Tags) Has(tag RelatedTag) bool {
	for _, t := range ts {
		if t == tag {
			return true
		}
	}
	return false
}
