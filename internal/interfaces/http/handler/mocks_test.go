package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/hms/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) UpsertBooking(ctx context.Context, req appbooking.UpsertBookingRequest) (*appbooking.UpsertBookingResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.UpsertBookingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingService) DeleteBooking(ctx context.Context, id uuid.UUID) (*appbooking.DeleteBookingResult, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.DeleteBookingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingService) Checkout(ctx context.Context, id uuid.UUID, endDate time.Time) (*appbooking.BookingResponse, error) {
	args := m.Called(ctx, id, endDate)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.BookingResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingService) ExtendRollingBills(ctx context.Context, id uuid.UUID) (*appbooking.ExtendBillsResult, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.ExtendBillsResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingService) GetBooking(ctx context.Context, id uuid.UUID) (*appbooking.BookingResponse, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.BookingResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingService) ListBookings(ctx context.Context, filter appbooking.BookingListFilter) ([]appbooking.BookingResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]appbooking.BookingResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockBookingService) ListBills(ctx context.Context, bookingID uuid.UUID) ([]appbooking.BillResponse, error) {
	args := m.Called(ctx, bookingID)
	if v := args.Get(0); v != nil {
		return v.([]appbooking.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) UpsertPayment(ctx context.Context, req appbooking.UpsertPaymentRequest) (*appbooking.UpsertPaymentResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.UpsertPaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentService) DeletePayment(ctx context.Context, id uuid.UUID) (*appbooking.DeletePaymentResult, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.DeletePaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentService) SimulatePayment(ctx context.Context, req appbooking.SimulatePaymentRequest) (*appbooking.SimulatePaymentResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.SimulatePaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*appbooking.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.PaymentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentService) ListPayments(ctx context.Context, bookingID uuid.UUID) ([]appbooking.PaymentResponse, error) {
	args := m.Called(ctx, bookingID)
	if v := args.Get(0); v != nil {
		return v.([]appbooking.PaymentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLedgerService struct {
	mock.Mock
}

func (m *mockLedgerService) UpdateDepositStatus(ctx context.Context, req appbooking.UpdateDepositStatusRequest) (*appbooking.DepositResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.DepositResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) (*appbooking.DeleteTransactionResult, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.DeleteTransactionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerService) GetDeposit(ctx context.Context, bookingID uuid.UUID) (*appbooking.DepositResponse, error) {
	args := m.Called(ctx, bookingID)
	if v := args.Get(0); v != nil {
		return v.(*appbooking.DepositResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerService) ListTransactions(ctx context.Context, filter appbooking.TransactionListFilter) ([]appbooking.TransactionResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]appbooking.TransactionResponse), args.Get(1).(int64), args.Error(2)
}

// performRequest sends a JSON request through router and decodes the envelope
func performRequest(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "test-request")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// dataMap re-decodes the envelope data as a JSON object
func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
