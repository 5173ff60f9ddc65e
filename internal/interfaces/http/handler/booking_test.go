package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/hms/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingTestEnv struct {
	router   *gin.Engine
	bookings *mockBookingService
	payments *mockPaymentService
	ledger   *mockLedgerService
}

func newBookingTestEnv() *bookingTestEnv {
	env := &bookingTestEnv{
		bookings: &mockBookingService{},
		payments: &mockPaymentService{},
		ledger:   &mockLedgerService{},
	}
	h := NewBookingHandler(env.bookings, env.payments, env.ledger)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/bookings", h.Create)
	r.GET("/bookings", h.List)
	r.GET("/bookings/:id", h.GetByID)
	r.PUT("/bookings/:id", h.Update)
	r.DELETE("/bookings/:id", h.Delete)
	r.POST("/bookings/:id/checkout", h.Checkout)
	r.POST("/bookings/:id/bills/extend", h.ExtendBills)
	r.GET("/bookings/:id/bills", h.ListBills)
	r.GET("/bookings/:id/payments", h.ListPayments)
	r.POST("/bookings/:id/payments/simulate", h.SimulatePayment)
	r.GET("/bookings/:id/deposit", h.GetDeposit)
	env.router = r
	return env
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBookingHandler_Create(t *testing.T) {
	roomID, tenantID, addOnID := uuid.New(), uuid.New(), uuid.New()

	t.Run("maps the request and answers 201", func(t *testing.T) {
		env := newBookingTestEnv()
		bookingID := uuid.New()
		env.bookings.On("UpsertBooking", mock.Anything, mock.MatchedBy(func(req appbooking.UpsertBookingRequest) bool {
			return req.ID == nil &&
				req.RoomID == roomID &&
				req.TenantID == tenantID &&
				req.StartDate.Equal(date(2024, 1, 15)) &&
				req.EndDate == nil &&
				req.DurationID == nil &&
				req.Fee.Equal(decimal.NewFromInt(1_500_000)) &&
				req.DepositAmount != nil && req.DepositAmount.Equal(decimal.NewFromInt(1_000_000)) &&
				len(req.AddOns) == 1 && req.AddOns[0].AddOnID == addOnID &&
				req.AddOns[0].EndDate != nil && req.AddOns[0].EndDate.Equal(date(2024, 3, 14))
		})).Return(&appbooking.UpsertBookingResult{
			Booking:        appbooking.BookingResponse{ID: bookingID, IsRolling: true},
			Created:        true,
			BillsGenerated: 2,
		}, nil)

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", map[string]any{
			"room_id":        roomID,
			"tenant_id":      tenantID,
			"start_date":     "2024-01-15",
			"fee":            1500000,
			"deposit_amount": "1000000",
			"addons": []map[string]any{
				{"addon_id": addOnID, "start_date": "2024-01-15", "end_date": "2024-03-14"},
			},
		})

		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, resp.Success)
		data := dataMap(t, resp)
		assert.Equal(t, true, data["created"])
		assert.Equal(t, float64(2), data["bills_generated"])
		env.bookings.AssertExpectations(t)
	})

	t.Run("validation errors list every field", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", map[string]any{
			"room_id":    "not-a-uuid",
			"tenant_id":  tenantID,
			"start_date": "15/01/2024",
			"addons":     []map[string]any{{"start_date": "2024-01-15"}},
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "test-request", resp.Error.RequestID)
		fields := make(map[string]string)
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid UUID format", fields["room_id"])
		assert.Equal(t, "Must be a date in 2006-01-02 format", fields["start_date"])
		assert.Equal(t, "Must be greater than 0", fields["fee"])
		assert.Equal(t, "This field is required", fields["addons[0].addon_id"])
		env.bookings.AssertNotCalled(t, "UpsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", `{"room_id":`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})

	t.Run("overlap is a conflict", func(t *testing.T) {
		env := newBookingTestEnv()
		env.bookings.On("UpsertBooking", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError("BOOKING_OVERLAP", "Room is already booked for these dates"))

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", map[string]any{
			"room_id": roomID, "tenant_id": tenantID, "start_date": "2024-01-15", "fee": 100,
		})

		require.Equal(t, http.StatusConflict, w.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "BOOKING_OVERLAP", resp.Error.Code)
		assert.Equal(t, "Room is already booked for these dates", resp.Error.Message)
	})

	t.Run("busy booking lock", func(t *testing.T) {
		env := newBookingTestEnv()
		env.bookings.On("UpsertBooking", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: booking %s", shared.ErrResourceLocked, uuid.New()))

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", map[string]any{
			"room_id": roomID, "tenant_id": tenantID, "start_date": "2024-01-15", "fee": 100,
		})

		require.Equal(t, http.StatusLocked, w.Code)
		assert.Equal(t, dto.ErrCodeResourceLocked, resp.Error.Code)
	})

	t.Run("unexpected error hides details", func(t *testing.T) {
		env := newBookingTestEnv()
		env.bookings.On("UpsertBooking", mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: connection refused"))

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings", map[string]any{
			"room_id": roomID, "tenant_id": tenantID, "start_date": "2024-01-15", "fee": 100,
		})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "pq")
	})
}

func TestBookingHandler_Update(t *testing.T) {
	t.Run("path id and version reach the service", func(t *testing.T) {
		env := newBookingTestEnv()
		id, durationID := uuid.New(), uuid.New()
		env.bookings.On("UpsertBooking", mock.Anything, mock.MatchedBy(func(req appbooking.UpsertBookingRequest) bool {
			return req.ID != nil && *req.ID == id &&
				req.Version != nil && *req.Version == 3 &&
				req.DurationID != nil && *req.DurationID == durationID &&
				req.EndDate != nil && req.EndDate.Equal(date(2024, 4, 14))
		})).Return(&appbooking.UpsertBookingResult{Booking: appbooking.BookingResponse{ID: id}}, nil)

		w, resp := performRequest(t, env.router, http.MethodPut, "/bookings/"+id.String(), map[string]any{
			"room_id":     uuid.New(),
			"tenant_id":   uuid.New(),
			"start_date":  "2024-01-15",
			"end_date":    "2024-04-14",
			"duration_id": durationID,
			"fee":         "1500000",
			"version":     3,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		env.bookings.AssertExpectations(t)
	})

	t.Run("bad id", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodPut, "/bookings/42", map[string]any{})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Equal(t, "Invalid booking ID format", resp.Error.Message)
	})

	t.Run("stale version", func(t *testing.T) {
		env := newBookingTestEnv()
		env.bookings.On("UpsertBooking", mock.Anything, mock.Anything).Return(nil, shared.ErrConcurrencyConflict)

		w, resp := performRequest(t, env.router, http.MethodPut, "/bookings/"+uuid.NewString(), map[string]any{
			"room_id": uuid.New(), "tenant_id": uuid.New(), "start_date": "2024-01-15", "fee": 1, "version": 1,
		})

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, resp.Error.Code)
	})
}

func TestBookingHandler_GetAndDelete(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.bookings.On("GetBooking", mock.Anything, id).Return(&appbooking.BookingResponse{ID: id, MonthCount: 3}, nil)

		w, resp := performRequest(t, env.router, http.MethodGet, "/bookings/"+id.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id.String(), dataMap(t, resp)["id"])
	})

	t.Run("get missing", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.bookings.On("GetBooking", mock.Anything, id).Return(nil, appbooking.ErrBookingNotFound)

		w, resp := performRequest(t, env.router, http.MethodGet, "/bookings/"+id.String(), nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "BOOKING_NOT_FOUND", resp.Error.Code)
	})

	t.Run("delete reports what was removed", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.bookings.On("DeleteBooking", mock.Anything, id).Return(&appbooking.DeleteBookingResult{
			BookingID:       id,
			RemovedBills:    3,
			RemovedPayments: 1,
			Warning:         "1 payment was deleted with the booking",
		}, nil)

		w, resp := performRequest(t, env.router, http.MethodDelete, "/bookings/"+id.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, resp)
		assert.Equal(t, float64(3), data["removed_bills"])
		assert.NotEmpty(t, data["warning"])
	})
}

func TestBookingHandler_List(t *testing.T) {
	t.Run("filters and paging", func(t *testing.T) {
		env := newBookingTestEnv()
		roomID := uuid.New()
		env.bookings.On("ListBookings", mock.Anything, mock.MatchedBy(func(f appbooking.BookingListFilter) bool {
			return f.RoomID != nil && *f.RoomID == roomID &&
				f.TenantID == nil &&
				f.IsRolling != nil && *f.IsRolling &&
				f.Page == 2 && f.PageSize == 10 && f.OrderDir == "desc"
		})).Return([]appbooking.BookingResponse{{ID: uuid.New()}}, int64(11), nil)

		w, resp := performRequest(t, env.router, http.MethodGet,
			"/bookings?room_id="+roomID.String()+"&is_rolling=true&page=2&page_size=10&order_dir=desc", nil)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(11), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("defaults", func(t *testing.T) {
		env := newBookingTestEnv()
		env.bookings.On("ListBookings", mock.Anything, mock.MatchedBy(func(f appbooking.BookingListFilter) bool {
			return f.Page == 1 && f.PageSize == 20 && f.RoomID == nil && f.IsRolling == nil
		})).Return([]appbooking.BookingResponse{}, int64(0), nil)

		w, _ := performRequest(t, env.router, http.MethodGet, "/bookings", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized pages", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodGet, "/bookings?page_size=500", nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}

func TestBookingHandler_Checkout(t *testing.T) {
	t.Run("parses the end date", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		end := date(2024, 6, 30)
		env.bookings.On("Checkout", mock.Anything, id, end).
			Return(&appbooking.BookingResponse{ID: id, EndDate: &end}, nil)

		w, _ := performRequest(t, env.router, http.MethodPost, "/bookings/"+id.String()+"/checkout",
			map[string]string{"end_date": "2024-06-30"})

		require.Equal(t, http.StatusOK, w.Code)
		env.bookings.AssertExpectations(t)
	})

	t.Run("end date is required", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+uuid.NewString()+"/checkout", map[string]string{})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "end_date", resp.Error.Details[0].Field)
	})
}

func TestBookingHandler_ExtendBills(t *testing.T) {
	t.Run("fixed booking", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.bookings.On("ExtendRollingBills", mock.Anything, id).Return(nil, appbooking.ErrNotRolling)

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+id.String()+"/bills/extend", nil)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})

	t.Run("added bills", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.bookings.On("ExtendRollingBills", mock.Anything, id).Return(&appbooking.ExtendBillsResult{
			BookingID: id,
			Added:     []appbooking.BillResponse{{ID: uuid.New(), DueDate: date(2024, 3, 1)}},
		}, nil)

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+id.String()+"/bills/extend", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, dataMap(t, resp)["added"], 1)
	})
}

func TestBookingHandler_Reads(t *testing.T) {
	env := newBookingTestEnv()
	id := uuid.New()
	env.bookings.On("ListBills", mock.Anything, id).Return([]appbooking.BillResponse{{ID: uuid.New()}, {ID: uuid.New()}}, nil)
	env.payments.On("ListPayments", mock.Anything, id).Return([]appbooking.PaymentResponse{{ID: uuid.New()}}, nil)
	env.ledger.On("GetDeposit", mock.Anything, id).Return(&appbooking.DepositResponse{BookingID: id, Status: "HELD"}, nil)

	w, resp := performRequest(t, env.router, http.MethodGet, "/bookings/"+id.String()+"/bills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 2)

	w, resp = performRequest(t, env.router, http.MethodGet, "/bookings/"+id.String()+"/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, resp = performRequest(t, env.router, http.MethodGet, "/bookings/"+id.String()+"/deposit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HELD", dataMap(t, resp)["status"])
}

func TestBookingHandler_SimulatePayment(t *testing.T) {
	t.Run("manual allocations", func(t *testing.T) {
		env := newBookingTestEnv()
		id, billID := uuid.New(), uuid.New()
		env.payments.On("SimulatePayment", mock.Anything, mock.MatchedBy(func(req appbooking.SimulatePaymentRequest) bool {
			return req.BookingID == id &&
				req.Mode == booking.AllocationModeManual &&
				req.Amount.Equal(decimal.NewFromInt(500_000)) &&
				req.Allocations[billID].Equal(decimal.NewFromInt(500_000))
		})).Return(&appbooking.SimulatePaymentResult{BookingID: id, FullyAllocated: true}, nil)

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+id.String()+"/payments/simulate", map[string]any{
			"amount":      500000,
			"mode":        "manual",
			"allocations": map[string]any{billID.String(): 500000},
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, dataMap(t, resp)["fully_allocated"])
	})

	t.Run("auto is the default mode", func(t *testing.T) {
		env := newBookingTestEnv()
		id := uuid.New()
		env.payments.On("SimulatePayment", mock.Anything, mock.MatchedBy(func(req appbooking.SimulatePaymentRequest) bool {
			return req.Mode == booking.AllocationModeAuto && req.Allocations == nil
		})).Return(&appbooking.SimulatePaymentResult{BookingID: id}, nil)

		w, _ := performRequest(t, env.router, http.MethodPost, "/bookings/"+id.String()+"/payments/simulate",
			map[string]any{"amount": 1})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("allocation keys must be bill ids", func(t *testing.T) {
		env := newBookingTestEnv()

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments/simulate", map[string]any{
			"amount":      100,
			"mode":        "manual",
			"allocations": map[string]any{"bill-1": 100},
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("manual total mismatch", func(t *testing.T) {
		env := newBookingTestEnv()
		env.payments.On("SimulatePayment", mock.Anything, mock.Anything).Return(nil, booking.ErrManualAllocationMismatch)

		w, resp := performRequest(t, env.router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments/simulate", map[string]any{
			"amount":      100,
			"mode":        "manual",
			"allocations": map[string]any{uuid.NewString(): 50},
		})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "MANUAL_ALLOCATION_MISMATCH", resp.Error.Code)
	})
}
