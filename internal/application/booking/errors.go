package booking

import "github.com/hms/backend/internal/domain/shared"

var (
	ErrBookingNotFound     = shared.NewDomainError("BOOKING_NOT_FOUND", "Booking not found")
	ErrPaymentNotFound     = shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	ErrDepositNotFound     = shared.NewDomainError("DEPOSIT_NOT_FOUND", "Deposit not found")
	ErrTransactionNotFound = shared.NewDomainError("TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrDurationNotFound    = shared.NewDomainError("DURATION_NOT_FOUND", "Duration not found")
	ErrRoomNotFound        = shared.NewDomainError("ROOM_NOT_FOUND", "Room not found")
	ErrTenantNotFound      = shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
	ErrPaymentMoved        = shared.NewDomainError("PAYMENT_BOOKING_MISMATCH", "A payment cannot be moved to another booking")
	ErrDepositFunded       = shared.NewDomainError("DEPOSIT_LOCKED", "A funded deposit cannot be removed from its booking")
	ErrNotRolling          = shared.NewDomainError("INVALID_STATE", "Only rolling bookings have their bills extended")
)
