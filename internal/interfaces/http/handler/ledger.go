package handler

import (
	"github.com/gin-gonic/gin"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles deposit settlement and ledger endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService LedgerAPI
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService LedgerAPI) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// UpdateDepositStatusRequest settles a held deposit
// @Description refunded_amount is required for PARTIALLY_REFUNDED and defaults to the deposit amount for REFUNDED
type UpdateDepositStatusRequest struct {
	Status         string           `json:"status" binding:"required,oneof=UNPAID HELD APPLIED PARTIALLY_REFUNDED REFUNDED" example:"REFUNDED"`
	RefundedAmount *decimal.Decimal `json:"refunded_amount" binding:"omitempty,gt=0" swaggertype:"string" example:"750000"`
	Date           string           `json:"date" binding:"omitempty,datetime=2006-01-02" example:"2024-07-01"`
}

// TransactionListQuery represents the query parameters of the ledger list
type TransactionListQuery struct {
	dto.ListRequest
	Category  string `form:"category" binding:"omitempty,oneof=ROOM_PAYMENT DEPOSIT DEPOSIT_REFUND"`
	BookingID string `form:"booking_id" binding:"omitempty,uuid"`
	PaymentID string `form:"payment_id" binding:"omitempty,uuid"`
	DepositID string `form:"deposit_id" binding:"omitempty,uuid"`
}

// UpdateDepositStatus godoc
// @ID           updateDepositStatus
//
//	@Summary		Settle a deposit
//	@Description	Apply or refund a held deposit. Refunds are written to the ledger as expenses.
//	@Tags			deposits
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Deposit ID"	format(uuid)
//	@Param			request	body		UpdateDepositStatusRequest	true	"Target status"
//	@Success		200		{object}	APIResponse[appbooking.DepositResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/deposits/{id}/status [patch]
func (h *LedgerHandler) UpdateDepositStatus(c *gin.Context) {
	id, ok := h.pathID(c, "deposit")
	if !ok {
		return
	}
	var req UpdateDepositStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.ledgerService.UpdateDepositStatus(c.Request.Context(), appbooking.UpdateDepositStatusRequest{
		DepositID:      id,
		Status:         booking.DepositStatus(req.Status),
		RefundedAmount: req.RefundedAmount,
		At:             parseOptionalDate(req.Date),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListTransactions godoc
// @ID           listTransactions
//
//	@Summary		List ledger rows
//	@Tags			transactions
//	@Produce		json
//	@Param			category	query		string	false	"Category"	Enums(ROOM_PAYMENT, DEPOSIT, DEPOSIT_REFUND)
//	@Param			booking_id	query		string	false	"Related booking"
//	@Param			payment_id	query		string	false	"Related payment"
//	@Param			deposit_id	query		string	false	"Related deposit"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(date)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)
//	@Success		200			{object}	APIResponse[[]appbooking.TransactionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/transactions [get]
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	var query TransactionListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page := query.ListRequest.WithDefaults()

	filter := appbooking.TransactionListFilter{
		BookingID: parseOptionalUUID(query.BookingID),
		PaymentID: parseOptionalUUID(query.PaymentID),
		DepositID: parseOptionalUUID(query.DepositID),
		Page:      page.Page,
		PageSize:  page.PageSize,
		OrderBy:   page.OrderBy,
		OrderDir:  page.OrderDir,
	}
	if query.Category != "" {
		category := booking.TransactionCategory(query.Category)
		filter.Category = &category
	}

	txs, total, err := h.ledgerService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, txs, total, page.Page, page.PageSize)
}

// DeleteTransaction godoc
// @ID           deleteTransaction
//
//	@Summary		Delete a ledger row
//	@Description	Delete a ledger row. A payment row also removes its payment; a refund row reopens the deposit.
//	@Tags			transactions
//	@Produce		json
//	@Param			id	path		string	true	"Transaction ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appbooking.DeleteTransactionResult]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/transactions/{id} [delete]
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := h.pathID(c, "transaction")
	if !ok {
		return
	}

	result, err := h.ledgerService.DeleteTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
