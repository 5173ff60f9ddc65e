package event

import (
	"github.com/hms/backend/internal/domain/booking"
)

// RegisterBillingEvents registers every booking-domain event with the serializer
func RegisterBillingEvents(serializer *EventSerializer) {
	serializer.Register(booking.EventTypeBookingCreated, &booking.BookingCreatedEvent{})
	serializer.Register(booking.EventTypeBookingUpdated, &booking.BookingUpdatedEvent{})
	serializer.Register(booking.EventTypeBookingCheckedOut, &booking.BookingCheckedOutEvent{})
	serializer.Register(booking.EventTypeBookingDeleted, &booking.BookingDeletedEvent{})
	serializer.Register(booking.EventTypeBillsGenerated, &booking.BillsGeneratedEvent{})
	serializer.Register(booking.EventTypePaymentRecorded, &booking.PaymentRecordedEvent{})
	serializer.Register(booking.EventTypePaymentDeleted, &booking.PaymentDeletedEvent{})
	serializer.Register(booking.EventTypeDepositStatusChanged, &booking.DepositStatusChangedEvent{})
}
