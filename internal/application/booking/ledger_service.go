package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/logger"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LedgerService settles deposits and lets operators remove ledger rows while keeping
// payments, deposits and the ledger consistent.
type LedgerService struct {
	scope          TransactionScope
	locker         BookingLocker
	reconciler     *reconciler
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, locker BookingLocker) *LedgerService {
	if locker == nil {
		locker = NoOpBookingLocker{}
	}
	return &LedgerService{
		scope:      scope,
		locker:     locker,
		reconciler: newReconciler(),
		logger:     zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLogger sets the logger
func (s *LedgerService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// SetClock overrides the clock and billing time zone used for default settlement dates
func (s *LedgerService) SetClock(now func() time.Time, location *time.Location) {
	s.reconciler.now = now
	if location != nil {
		s.reconciler.location = location
	}
}

// UpdateDepositStatus applies or refunds a held deposit. A refund writes exactly one
// DEPOSIT_REFUND expense row.
func (s *LedgerService) UpdateDepositStatus(ctx context.Context, req UpdateDepositStatusRequest) (*DepositResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deposit", "update_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDepositID, req.DepositID.String(),
		telemetry.SpanAttrDepositStatus, req.Status.String(),
	)

	bookingID, err := s.depositBooking(ctx, req.DepositID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	release, err := s.locker.Acquire(ctx, bookingID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	at := s.reconciler.today()
	if req.At != nil {
		at = booking.DateOf(*req.At)
	}

	var resp *DepositResponse
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := repos.DepositRepo().FindByID(ctx, req.DepositID)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		if d == nil {
			return ErrDepositNotFound
		}
		if err := d.TransitionTo(req.Status, req.RefundedAmount, at); err != nil {
			return err
		}
		if err := repos.DepositRepo().Save(ctx, d); err != nil {
			return fmt.Errorf("failed to save deposit: %w", err)
		}
		existing, err := repos.TransactionRepo().FindByRelated(ctx, booking.RelatedKindDeposit, d.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger rows of deposit: %w", err)
		}
		if _, err := applyLedgerPlan(ctx, repos, booking.PlanDepositRefundLedger(d, existing)); err != nil {
			return err
		}
		events.collect(d)
		resp = ToDepositResponse(d)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	publish(ctx, s.eventPublisher, events)
	return resp, nil
}

func (s *LedgerService) depositBooking(ctx context.Context, depositID uuid.UUID) (uuid.UUID, error) {
	var bookingID uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := repos.DepositRepo().FindByID(ctx, depositID)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		if d == nil {
			return ErrDepositNotFound
		}
		bookingID = d.BookingID
		return nil
	})
	return bookingID, err
}

// DeleteTransaction removes a ledger row and repairs what it mirrored:
//   - a row of a payment deletes that payment with its allocations and other rows
//   - a deposit refund row reverts the refund
//   - any other row is removed on its own
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) (*DeleteTransactionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTransactionID, id.String())

	tx, err := s.findTransaction(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if bookingID, ok := tx.BookingID(); ok {
		ctx = logger.WithBookingID(ctx, bookingID.String())
		release, err := s.locker.Acquire(ctx, bookingID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		defer release()
	}

	result := &DeleteTransactionResult{TransactionID: id, Category: tx.Category.String()}
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		if current == nil {
			return ErrTransactionNotFound
		}

		if paymentID, ok := current.PaymentID(); ok {
			deleted, err := deletePayment(ctx, repos, s.reconciler, paymentID, &events)
			if err == nil {
				result.PaymentDeleted = &deleted.PaymentID
				result.Deposit = deleted.Deposit
				result.Ledger = deleted.Ledger
				return nil
			}
			if !errors.Is(err, ErrPaymentNotFound) {
				return err
			}
			// the payment is already gone, drop the orphaned row below
		}

		if err := repos.TransactionRepo().Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		result.Ledger.Deleted = 1

		if current.Category != booking.CategoryDepositRefund {
			return nil
		}
		depositID, ok := current.DepositID()
		if !ok {
			return nil
		}
		d, err := repos.DepositRepo().FindByID(ctx, depositID)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		if d == nil {
			return nil
		}
		funded, err := s.depositFunded(ctx, repos, d)
		if err != nil {
			return err
		}
		d.RevertRefund(funded)
		if err := repos.DepositRepo().Save(ctx, d); err != nil {
			return fmt.Errorf("failed to save deposit: %w", err)
		}
		events.collect(d)
		result.Deposit = ToDepositResponse(d)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("ledger row deleted",
		zap.String("transaction_id", id.String()),
		zap.String("category", result.Category),
		zap.Bool("payment_deleted", result.PaymentDeleted != nil),
	)
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

func (s *LedgerService) findTransaction(ctx context.Context, id uuid.UUID) (*booking.Transaction, error) {
	var tx *booking.Transaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		if found == nil {
			return ErrTransactionNotFound
		}
		tx = found
		return nil
	})
	return tx, err
}

func (s *LedgerService) depositFunded(ctx context.Context, repos TransactionalRepositories, d *booking.Deposit) (bool, error) {
	bills, err := repos.BillRepo().FindByBooking(ctx, d.BookingID)
	if err != nil {
		return false, fmt.Errorf("failed to load bills: %w", err)
	}
	payments, err := repos.PaymentRepo().FindByBooking(ctx, d.BookingID)
	if err != nil {
		return false, fmt.Errorf("failed to load payments: %w", err)
	}
	split := booking.SplitFunding(bills, payments)
	return split.DepositFunded.GreaterThanOrEqual(d.Amount), nil
}

// GetDeposit returns the deposit of a booking
func (s *LedgerService) GetDeposit(ctx context.Context, bookingID uuid.UUID) (*DepositResponse, error) {
	var resp *DepositResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := repos.DepositRepo().FindByBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		if d == nil {
			return ErrDepositNotFound
		}
		resp = ToDepositResponse(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListTransactions lists ledger rows
func (s *LedgerService) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	domainFilter := booking.TransactionFilter{
		Filter:   pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, "date"),
		Category: filter.Category,
	}
	switch {
	case filter.PaymentID != nil:
		tag := booking.PaymentTag(*filter.PaymentID)
		domainFilter.Related = &tag
	case filter.DepositID != nil:
		tag := booking.DepositTag(*filter.DepositID)
		domainFilter.Related = &tag
	case filter.BookingID != nil:
		tag := booking.BookingTag(*filter.BookingID)
		domainFilter.Related = &tag
	}

	var responses []TransactionResponse
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		txs, count, err := repos.TransactionRepo().FindAll(ctx, domainFilter)
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		responses = ToTransactionResponses(txs)
		total = count
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}
