package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentAPI
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService PaymentAPI) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// UpsertPaymentRequest represents a request to record or revise a payment
// @Description Payment of a booking. In manual mode allocations maps bill IDs to amounts.
type UpsertPaymentRequest struct {
	BookingID   string                     `json:"booking_id" binding:"required,uuid" example:"0b7e5c1d-9a3f-4d2b-8e61-3f2a1c9d7b40"`
	Amount      decimal.Decimal            `json:"amount" binding:"gt=0" swaggertype:"string" example:"1500000"`
	PaymentDate string                     `json:"payment_date" binding:"required,datetime=2006-01-02" example:"2024-01-20"`
	Status      string                     `json:"status" binding:"omitempty,oneof=PENDING CONFIRMED FAILED" example:"CONFIRMED"`
	Method      string                     `json:"method" binding:"max=50" example:"bank_transfer"`
	Reference   string                     `json:"reference" binding:"max=100" example:"TRF-20240120-001"`
	Mode        string                     `json:"mode" binding:"omitempty,oneof=auto manual" example:"auto"`
	Allocations map[string]decimal.Decimal `json:"allocations" binding:"omitempty,dive,keys,uuid,endkeys,gte=0"`
	Version     *int                       `json:"version" binding:"omitempty,min=1" example:"1"`
}

func (r UpsertPaymentRequest) toApp(id *uuid.UUID) appbooking.UpsertPaymentRequest {
	status := booking.PaymentStatusConfirmed
	if r.Status != "" {
		status = booking.PaymentStatus(r.Status)
	}
	return appbooking.UpsertPaymentRequest{
		ID:          id,
		Version:     r.Version,
		BookingID:   uuid.MustParse(r.BookingID),
		Amount:      r.Amount,
		PaymentDate: parseDate(r.PaymentDate),
		Status:      status,
		Method:      r.Method,
		Reference:   r.Reference,
		Mode:        allocationMode(r.Mode),
		Allocations: billAllocations(r.Allocations),
	}
}

// allocationMode defaults to auto
func allocationMode(mode string) booking.AllocationMode {
	if mode == "" {
		return booking.AllocationModeAuto
	}
	return booking.AllocationMode(mode)
}

// billAllocations converts validated bill ID keys
func billAllocations(in map[string]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	if len(in) == 0 {
		return nil
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(in))
	for id, amount := range in {
		out[uuid.MustParse(id)] = amount
	}
	return out
}

// Create godoc
// @ID           createPayment
//
//	@Summary		Record a payment
//	@Description	Record a payment, allocate it to bills and reconcile the deposit and ledger
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpsertPaymentRequest	true	"Payment"
//	@Success		201		{object}	APIResponse[appbooking.UpsertPaymentResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req UpsertPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.UpsertPayment(c.Request.Context(), req.toApp(nil))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Update godoc
// @ID           updatePayment
//
//	@Summary		Revise a payment
//	@Description	Replace the payment details and re-run its allocation
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Payment ID"	format(uuid)
//	@Param			request	body		UpsertPaymentRequest	true	"Payment"
//	@Success		200		{object}	APIResponse[appbooking.UpsertPaymentResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "payment")
	if !ok {
		return
	}
	var req UpsertPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.UpsertPayment(c.Request.Context(), req.toApp(&id))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @ID           deletePayment
//
//	@Summary		Delete a payment
//	@Description	Delete a payment with its allocations and ledger rows
//	@Tags			payments
//	@Produce		json
//	@Param			id	path		string	true	"Payment ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.DeletePaymentResult]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "payment")
	if !ok {
		return
	}

	result, err := h.paymentService.DeletePayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID godoc
// @ID           getPayment
//
//	@Summary		Get a payment
//	@Tags			payments
//	@Produce		json
//	@Param			id	path		string	true	"Payment ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.PaymentResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "payment")
	if !ok {
		return
	}

	resp, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
