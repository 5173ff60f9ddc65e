package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
)

// BookingAPI is the booking use cases served over HTTP
type BookingAPI interface {
	UpsertBooking(ctx context.Context, req appbooking.UpsertBookingRequest) (*appbooking.UpsertBookingResult, error)
	DeleteBooking(ctx context.Context, id uuid.UUID) (*appbooking.DeleteBookingResult, error)
	Checkout(ctx context.Context, id uuid.UUID, endDate time.Time) (*appbooking.BookingResponse, error)
	ExtendRollingBills(ctx context.Context, id uuid.UUID) (*appbooking.ExtendBillsResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*appbooking.BookingResponse, error)
	ListBookings(ctx context.Context, filter appbooking.BookingListFilter) ([]appbooking.BookingResponse, int64, error)
	ListBills(ctx context.Context, bookingID uuid.UUID) ([]appbooking.BillResponse, error)
}

// PaymentAPI is the payment use cases served over HTTP
type PaymentAPI interface {
	UpsertPayment(ctx context.Context, req appbooking.UpsertPaymentRequest) (*appbooking.UpsertPaymentResult, error)
	DeletePayment(ctx context.Context, id uuid.UUID) (*appbooking.DeletePaymentResult, error)
	SimulatePayment(ctx context.Context, req appbooking.SimulatePaymentRequest) (*appbooking.SimulatePaymentResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*appbooking.PaymentResponse, error)
	ListPayments(ctx context.Context, bookingID uuid.UUID) ([]appbooking.PaymentResponse, error)
}

// LedgerAPI is the deposit and ledger use cases served over HTTP
type LedgerAPI interface {
	UpdateDepositStatus(ctx context.Context, req appbooking.UpdateDepositStatusRequest) (*appbooking.DepositResponse, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) (*appbooking.DeleteTransactionResult, error)
	GetDeposit(ctx context.Context, bookingID uuid.UUID) (*appbooking.DepositResponse, error)
	ListTransactions(ctx context.Context, filter appbooking.TransactionListFilter) ([]appbooking.TransactionResponse, int64, error)
}

var (
	_ BookingAPI = (*appbooking.BookingService)(nil)
	_ PaymentAPI = (*appbooking.PaymentService)(nil)
	_ LedgerAPI  = (*appbooking.LedgerService)(nil)
)
