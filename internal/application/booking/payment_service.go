package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records payments, spreads them over bills and mirrors them in the ledger
type PaymentService struct {
	scope          TransactionScope
	locker         BookingLocker
	reconciler     *reconciler
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, locker BookingLocker) *PaymentService {
	if locker == nil {
		locker = NoOpBookingLocker{}
	}
	return &PaymentService{
		scope:      scope,
		locker:     locker,
		reconciler: newReconciler(),
		logger:     zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLogger sets the logger
func (s *PaymentService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// SetClock overrides the clock and billing time zone used to decide the current month
func (s *PaymentService) SetClock(now func() time.Time, location *time.Location) {
	s.reconciler.now = now
	if location != nil {
		s.reconciler.location = location
	}
}

// UpsertPayment records or revises a payment, allocates it over the booking's outstanding
// bills and re-syncs the ledger and deposit status. Rolling bookings get their current
// month's bill first.
func (s *PaymentService) UpsertPayment(ctx context.Context, req UpsertPaymentRequest) (*UpsertPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "upsert")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBookingID, req.BookingID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrAllocationMode, string(req.Mode),
	)

	strategy, err := s.reconciler.strategies.GetStrategy(req.Mode, req.Allocations)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, req.BookingID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var result *UpsertPaymentResult
	var events pendingEvents
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationUpsertPayment), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			result, err = s.upsertPayment(c, repos, req, strategy, &events)
			return err
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, result.Payment.ID.String())
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

func (s *PaymentService) upsertPayment(ctx context.Context, repos TransactionalRepositories, req UpsertPaymentRequest, strategy booking.AllocationStrategy, events *pendingEvents) (*UpsertPaymentResult, error) {
	b, err := repos.BookingRepo().FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	deposit, err := repos.DepositRepo().FindByBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deposit: %w", err)
	}
	bills, added, err := s.reconciler.extendBills(ctx, repos, b, deposit)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		events.add(booking.NewBillsGeneratedEvent(b.ID, added))
	}
	payments, err := repos.PaymentRepo().FindByBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	var p *booking.Payment
	created := req.ID == nil
	if created {
		p, err = booking.NewPayment(b.ID, req.Amount, req.PaymentDate, req.Status)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	} else {
		p = findPayment(payments, *req.ID)
		if p == nil {
			existing, err := repos.PaymentRepo().FindByID(ctx, *req.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load payment: %w", err)
			}
			if existing == nil {
				return nil, ErrPaymentNotFound
			}
			return nil, ErrPaymentMoved
		}
		if req.Version != nil && *req.Version != p.Version {
			return nil, shared.ErrConcurrencyConflict
		}
		if err := p.Revise(req.Amount, req.PaymentDate, req.Status); err != nil {
			return nil, err
		}
	}
	p.Method = req.Method
	p.Reference = req.Reference

	if err := s.reconciler.allocate(p, strategy, bills, payments); err != nil {
		return nil, err
	}
	if created {
		err = repos.PaymentRepo().Save(ctx, p)
	} else {
		err = repos.PaymentRepo().SaveWithLock(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	ledger, err := s.reconciler.syncLedger(ctx, repos, bills, payments, deposit)
	if err != nil {
		return nil, err
	}

	events.collect(p)
	if deposit != nil {
		events.collect(deposit)
	}
	return &UpsertPaymentResult{
		Payment: ToPaymentResponse(p),
		Created: created,
		Deposit: ToDepositResponse(deposit),
		Ledger:  ledger,
	}, nil
}

// DeletePayment removes a payment with its allocations and ledger rows and recomputes the
// deposit status of its booking.
func (s *PaymentService) DeletePayment(ctx context.Context, id uuid.UUID) (*DeletePaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, id.String())

	bookingID, err := s.bookingOf(ctx, id)
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

	var result *DeletePaymentResult
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = deletePayment(ctx, repos, s.reconciler, id, &events)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

func (s *PaymentService) bookingOf(ctx context.Context, paymentID uuid.UUID) (uuid.UUID, error) {
	var bookingID uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		bookingID = p.BookingID
		return nil
	})
	return bookingID, err
}

// deletePayment is shared with the ledger service, which deletes a payment when one of its
// ledger rows is removed.
func deletePayment(ctx context.Context, repos TransactionalRepositories, r *reconciler, id uuid.UUID, events *pendingEvents) (*DeletePaymentResult, error) {
	p, err := repos.PaymentRepo().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}

	removed, err := removeLedgerRows(ctx, repos, booking.RelatedKindPayment, p.ID)
	if err != nil {
		return nil, err
	}
	if err := repos.PaymentRepo().Delete(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("failed to delete payment: %w", err)
	}

	bills, err := repos.BillRepo().FindByBooking(ctx, p.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bills: %w", err)
	}
	payments, err := repos.PaymentRepo().FindByBooking(ctx, p.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	deposit, err := repos.DepositRepo().FindByBooking(ctx, p.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deposit: %w", err)
	}
	ledger, err := r.syncLedger(ctx, repos, bills, payments, deposit)
	if err != nil {
		return nil, err
	}
	ledger.Deleted += removed

	events.add(booking.NewPaymentDeletedEvent(p))
	if deposit != nil {
		events.collect(deposit)
	}
	return &DeletePaymentResult{
		PaymentID: p.ID,
		BookingID: p.BookingID,
		Deposit:   ToDepositResponse(deposit),
		Ledger:    ledger,
	}, nil
}

// SimulatePayment previews the allocation of an amount without writing anything.
// Bills a rolling booking would accrue by today are included.
func (s *PaymentService) SimulatePayment(ctx context.Context, req SimulatePaymentRequest) (*SimulatePaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "simulate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBookingID, req.BookingID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	strategy, err := s.reconciler.strategies.GetStrategy(req.Mode, req.Allocations)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *SimulatePaymentResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BookingRepo().FindByID(ctx, req.BookingID)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}
		bills, err := repos.BillRepo().FindByBooking(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		if b.Term().IsRolling() {
			preview, err := s.previewExtension(ctx, repos, b, bills)
			if err != nil {
				return err
			}
			bills = append(bills, preview...)
		}
		payments, err := repos.PaymentRepo().FindByBooking(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}

		targets := booking.BuildAllocationTargets(bills, payments, uuid.Nil)
		outstanding := decimal.Zero
		for _, t := range targets {
			outstanding = outstanding.Add(t.Outstanding)
		}
		allocation, err := strategy.Allocate(req.Amount, targets)
		if err != nil {
			return err
		}
		result = toSimulatePaymentResult(b.ID, req.Amount, strategy.Mode(), allocation, outstanding)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) previewExtension(ctx context.Context, repos TransactionalRepositories, b *booking.Booking, bills []*booking.Bill) ([]*booking.Bill, error) {
	deposit, err := repos.DepositRepo().FindByBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deposit: %w", err)
	}
	in, err := s.reconciler.generationInput(ctx, repos, b, deposit)
	if err != nil {
		return nil, err
	}
	if last, ok := booking.LastDueDate(bills); ok {
		return s.reconciler.generator.Extend(in, last)
	}
	return s.reconciler.generator.Generate(in)
}

// GetPayment returns a payment with its allocations
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	var resp PaymentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		resp = ToPaymentResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPayments returns the payments of a booking, oldest payment date first
func (s *PaymentService) ListPayments(ctx context.Context, bookingID uuid.UUID) ([]PaymentResponse, error) {
	var responses []PaymentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureBooking(ctx, repos, bookingID); err != nil {
			return err
		}
		payments, err := repos.PaymentRepo().FindByBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		booking.SortPaymentsByDate(payments)
		responses = make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			responses = append(responses, ToPaymentResponse(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func findPayment(payments []*booking.Payment, id uuid.UUID) *booking.Payment {
	for _, p := range payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}
