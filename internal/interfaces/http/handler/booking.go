package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// BookingHandler handles booking-related API endpoints
type BookingHandler struct {
	BaseHandler
	bookingService BookingAPI
	paymentService PaymentAPI
	ledgerService  LedgerAPI
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService BookingAPI, paymentService PaymentAPI, ledgerService LedgerAPI) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		paymentService: paymentService,
		ledgerService:  ledgerService,
	}
}

// BookingAddOnRequest attaches a catalog add-on to a booking
type BookingAddOnRequest struct {
	AddOnID   string `json:"addon_id" binding:"required,uuid" example:"5b0f3e8a-2c61-4a43-8f0a-0d9f1c3b7e21"`
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02" example:"2024-01-15"`
	EndDate   string `json:"end_date" binding:"omitempty,datetime=2006-01-02" example:"2024-03-14"`
}

// UpsertBookingRequest represents a request to create or update a booking
// @Description Booking terms. Omit both end_date and duration_id for a rolling booking.
type UpsertBookingRequest struct {
	RoomID            string                `json:"room_id" binding:"required,uuid" example:"0b7e5c1d-9a3f-4d2b-8e61-3f2a1c9d7b40"`
	TenantID          string                `json:"tenant_id" binding:"required,uuid" example:"9c1d2e3f-4a5b-4c6d-8e7f-0a1b2c3d4e5f"`
	StartDate         string                `json:"start_date" binding:"required,datetime=2006-01-02" example:"2024-01-15"`
	EndDate           string                `json:"end_date" binding:"omitempty,datetime=2006-01-02" example:"2024-04-14"`
	DurationID        string                `json:"duration_id" binding:"omitempty,uuid"`
	Fee               decimal.Decimal       `json:"fee" binding:"gt=0" swaggertype:"string" example:"1500000"`
	SecondResidentFee *decimal.Decimal      `json:"second_resident_fee" binding:"omitempty,gte=0" swaggertype:"string" example:"250000"`
	DepositAmount     *decimal.Decimal      `json:"deposit_amount" binding:"omitempty,gte=0" swaggertype:"string" example:"1000000"`
	AddOns            []BookingAddOnRequest `json:"addons" binding:"omitempty,dive"`
	Version           *int                  `json:"version" binding:"omitempty,min=1" example:"1"`
}

func (r UpsertBookingRequest) toApp(id *uuid.UUID) appbooking.UpsertBookingRequest {
	addOns := make([]appbooking.AddOnInput, 0, len(r.AddOns))
	for _, a := range r.AddOns {
		addOns = append(addOns, appbooking.AddOnInput{
			AddOnID:   uuid.MustParse(a.AddOnID),
			StartDate: parseDate(a.StartDate),
			EndDate:   parseOptionalDate(a.EndDate),
		})
	}
	return appbooking.UpsertBookingRequest{
		ID:                id,
		Version:           r.Version,
		RoomID:            uuid.MustParse(r.RoomID),
		TenantID:          uuid.MustParse(r.TenantID),
		StartDate:         parseDate(r.StartDate),
		EndDate:           parseOptionalDate(r.EndDate),
		DurationID:        parseOptionalUUID(r.DurationID),
		Fee:               r.Fee,
		SecondResidentFee: r.SecondResidentFee,
		DepositAmount:     r.DepositAmount,
		AddOns:            addOns,
	}
}

// CheckoutRequest ends a booking on a given date
type CheckoutRequest struct {
	EndDate string `json:"end_date" binding:"required,datetime=2006-01-02" example:"2024-06-30"`
}

// BookingListQuery represents the query parameters of the booking list
type BookingListQuery struct {
	dto.ListRequest
	RoomID    string `form:"room_id" binding:"omitempty,uuid"`
	TenantID  string `form:"tenant_id" binding:"omitempty,uuid"`
	IsRolling *bool  `form:"is_rolling"`
}

// SimulatePaymentRequest previews the allocation of a payment amount
type SimulatePaymentRequest struct {
	Amount      decimal.Decimal            `json:"amount" binding:"gt=0" swaggertype:"string" example:"2000000"`
	Mode        string                     `json:"mode" binding:"omitempty,oneof=auto manual" example:"auto"`
	Allocations map[string]decimal.Decimal `json:"allocations" binding:"omitempty,dive,keys,uuid,endkeys,gte=0"`
}

// Create godoc
// @ID           createBooking
//
//	@Summary		Create a booking
//	@Description	Create a booking, generate its bills and deposit, and reconcile the ledger
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpsertBookingRequest	true	"Booking terms"
//	@Success		201		{object}	APIResponse[appbooking.UpsertBookingResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req UpsertBookingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.bookingService.UpsertBooking(c.Request.Context(), req.toApp(nil))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Update godoc
// @ID           updateBooking
//
//	@Summary		Update a booking
//	@Description	Replace the booking terms; bills are regenerated and payments reallocated
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Booking ID"	format(uuid)
//	@Param			request	body		UpsertBookingRequest	true	"Booking terms"
//	@Success		200		{object}	APIResponse[appbooking.UpsertBookingResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}
	var req UpsertBookingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.bookingService.UpsertBooking(c.Request.Context(), req.toApp(&id))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @ID           deleteBooking
//
//	@Summary		Delete a booking
//	@Description	Delete a booking with its bills, payments, deposit and ledger rows
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.DeleteBookingResult]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	result, err := h.bookingService.DeleteBooking(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID godoc
// @ID           getBooking
//
//	@Summary		Get a booking
//	@Description	Get a booking with its deposit and bills
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.BookingResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/bookings/{id} [get]
func (h *BookingHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	resp, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List godoc
// @ID           listBookings
//
//	@Summary		List bookings
//	@Tags			bookings
//	@Produce		json
//	@Param			room_id		query		string	false	"Room ID"
//	@Param			tenant_id	query		string	false	"Tenant ID"
//	@Param			is_rolling	query		boolean	false	"Only rolling or only fixed bookings"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(start_date)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)
//	@Success		200			{object}	APIResponse[[]appbooking.BookingResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var query BookingListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page := query.ListRequest.WithDefaults()

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), appbooking.BookingListFilter{
		RoomID:    parseOptionalUUID(query.RoomID),
		TenantID:  parseOptionalUUID(query.TenantID),
		IsRolling: query.IsRolling,
		Page:      page.Page,
		PageSize:  page.PageSize,
		OrderBy:   page.OrderBy,
		OrderDir:  page.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, bookings, total, page.Page, page.PageSize)
}

// Checkout godoc
// @ID           checkoutBooking
//
//	@Summary		Check out a booking
//	@Description	Fix the end date of a booking; a rolling booking stops rolling
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Booking ID"	format(uuid)
//	@Param			request	body		CheckoutRequest	true	"Checkout date"
//	@Success		200		{object}	APIResponse[appbooking.BookingResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/bookings/{id}/checkout [post]
func (h *BookingHandler) Checkout(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}
	var req CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.bookingService.Checkout(c.Request.Context(), id, parseDate(req.EndDate))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ExtendBills godoc
// @ID           extendBookingBills
//
//	@Summary		Extend the bills of a rolling booking
//	@Description	Generate the monthly bills of a rolling booking up to next month
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.ExtendBillsResult]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/bookings/{id}/bills/extend [post]
func (h *BookingHandler) ExtendBills(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	result, err := h.bookingService.ExtendRollingBills(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListBills godoc
// @ID           listBookingBills
//
//	@Summary		List the bills of a booking
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[[]appbooking.BillResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/bookings/{id}/bills [get]
func (h *BookingHandler) ListBills(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	bills, err := h.bookingService.ListBills(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bills)
}

// ListPayments godoc
// @ID           listBookingPayments
//
//	@Summary		List the payments of a booking
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[[]appbooking.PaymentResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/bookings/{id}/payments [get]
func (h *BookingHandler) ListPayments(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// SimulatePayment godoc
// @ID           simulateBookingPayment
//
//	@Summary		Preview a payment allocation
//	@Description	Show how an amount would be spread over the outstanding bills without saving anything
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Booking ID"	format(uuid)
//	@Param			request	body		SimulatePaymentRequest	true	"Amount to allocate"
//	@Success		200		{object}	APIResponse[appbooking.SimulatePaymentResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/bookings/{id}/payments/simulate [post]
func (h *BookingHandler) SimulatePayment(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}
	var req SimulatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.SimulatePayment(c.Request.Context(), appbooking.SimulatePaymentRequest{
		BookingID:   id,
		Amount:      req.Amount,
		Mode:        allocationMode(req.Mode),
		Allocations: billAllocations(req.Allocations),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetDeposit godoc
// @ID           getBookingDeposit
//
//	@Summary		Get the deposit of a booking
//	@Tags			bookings
//	@Produce		json
//	@Param			id	path		string	true	"Booking ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.DepositResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/bookings/{id}/deposit [get]
func (h *BookingHandler) GetDeposit(c *gin.Context) {
	id, ok := h.pathID(c, "booking")
	if !ok {
		return
	}

	deposit, err := h.ledgerService.GetDeposit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, deposit)
}
