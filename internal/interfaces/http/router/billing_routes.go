package router

import (
	"github.com/gin-gonic/gin"
	"github.com/hms/backend/internal/interfaces/http/handler"
)

// BillingHandlers are the handlers served under the versioned API
type BillingHandlers struct {
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Ledger   *handler.LedgerHandler
}

// BillingRoutes builds the booking, payment, deposit and transaction groups
func BillingRoutes(h BillingHandlers) []*DomainGroup {
	bookings := NewDomainGroup("bookings", "/bookings").
		POST("", h.Bookings.Create).
		GET("", h.Bookings.List).
		GET("/:id", h.Bookings.GetByID).
		PUT("/:id", h.Bookings.Update).
		DELETE("/:id", h.Bookings.Delete).
		POST("/:id/checkout", h.Bookings.Checkout).
		POST("/:id/bills/extend", h.Bookings.ExtendBills).
		GET("/:id/bills", h.Bookings.ListBills).
		GET("/:id/payments", h.Bookings.ListPayments).
		POST("/:id/payments/simulate", h.Bookings.SimulatePayment).
		GET("/:id/deposit", h.Bookings.GetDeposit)

	payments := NewDomainGroup("payments", "/payments").
		POST("", h.Payments.Create).
		GET("/:id", h.Payments.GetByID).
		PUT("/:id", h.Payments.Update).
		DELETE("/:id", h.Payments.Delete)

	deposits := NewDomainGroup("deposits", "/deposits").
		PATCH("/:id/status", h.Ledger.UpdateDepositStatus)

	transactions := NewDomainGroup("transactions", "/transactions").
		GET("", h.Ledger.ListTransactions).
		DELETE("/:id", h.Ledger.DeleteTransaction)

	return []*DomainGroup{bookings, payments, deposits, transactions}
}

// RegisterHealth mounts the probes at the engine root, outside the versioned API
func RegisterHealth(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Live)
	engine.GET("/ready", h.Ready)
}
