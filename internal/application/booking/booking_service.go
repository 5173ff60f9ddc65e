package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/logger"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DeleteBookingWarning is returned when deleting a booking discarded recorded payments
const DeleteBookingWarning = "Payments recorded for this booking were removed together with their allocations and ledger rows; re-audit the tenant's balance"

// BookingService creates, edits and removes bookings and keeps their bills, deposit,
// allocations and ledger rows consistent.
type BookingService struct {
	scope          TransactionScope
	locker         BookingLocker
	reconciler     *reconciler
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(scope TransactionScope, locker BookingLocker) *BookingService {
	if locker == nil {
		locker = NoOpBookingLocker{}
	}
	return &BookingService{
		scope:      scope,
		locker:     locker,
		reconciler: newReconciler(),
		logger:     zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BookingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLogger sets the logger
func (s *BookingService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// SetClock overrides the clock and billing time zone used to decide the current month
func (s *BookingService) SetClock(now func() time.Time, location *time.Location) {
	s.reconciler.now = now
	if location != nil {
		s.reconciler.location = location
	}
}

// UpsertBooking creates a booking or replaces the terms of an existing one.
// An update regenerates every bill, re-runs auto allocation for every payment oldest first
// and re-syncs the ledger, all inside one transaction.
func (s *BookingService) UpsertBooking(ctx context.Context, req UpsertBookingRequest) (*UpsertBookingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "upsert")
	defer span.End()

	if req.ID != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrBookingID, req.ID.String())
		release, err := s.locker.Acquire(ctx, *req.ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		defer release()
	}

	var result *UpsertBookingResult
	var events pendingEvents
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationUpsertBooking), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			result, err = s.upsertBooking(c, repos, req, &events)
			return err
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBookingID, result.Booking.ID.String(),
		telemetry.SpanAttrBillCount, result.BillsGenerated,
	)
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

func (s *BookingService) upsertBooking(ctx context.Context, repos TransactionalRepositories, req UpsertBookingRequest, events *pendingEvents) (*UpsertBookingResult, error) {
	duration, err := s.resolveDuration(ctx, repos, req.DurationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDirectory(ctx, repos, req.RoomID, req.TenantID); err != nil {
		return nil, err
	}

	var b *booking.Booking
	created := req.ID == nil
	if created {
		b, err = booking.NewBooking(req.terms(), duration)
		if err != nil {
			return nil, err
		}
	} else {
		b, err = repos.BookingRepo().FindByID(ctx, *req.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return nil, ErrBookingNotFound
		}
		if req.Version != nil && *req.Version != b.Version {
			return nil, shared.ErrConcurrencyConflict
		}
		if err := b.Update(req.terms(), duration); err != nil {
			return nil, err
		}
	}

	roomBookings, err := repos.BookingRepo().FindByRoom(ctx, b.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room bookings: %w", err)
	}
	if err := booking.CheckOverlap(b, roomBookings); err != nil {
		return nil, err
	}

	if created {
		err = repos.BookingRepo().Save(ctx, b)
	} else {
		err = repos.BookingRepo().SaveWithLock(ctx, b)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	deposit, err := s.upsertDeposit(ctx, repos, b.ID, req)
	if err != nil {
		return nil, err
	}

	bills, err := s.reconciler.regenerateBills(ctx, repos, b, deposit)
	if err != nil {
		return nil, err
	}
	payments, err := repos.PaymentRepo().FindByBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	if err := s.reconciler.reallocatePayments(ctx, repos, bills, payments); err != nil {
		return nil, err
	}
	ledger, err := s.reconciler.syncLedger(ctx, repos, bills, payments, deposit)
	if err != nil {
		return nil, err
	}

	events.collect(b)
	for _, p := range payments {
		events.collect(p)
	}
	if deposit != nil {
		events.collect(deposit)
	}
	events.add(booking.NewBillsGeneratedEvent(b.ID, bills))

	resp := ToBookingResponse(b)
	resp.Deposit = ToDepositResponse(deposit)
	resp.Bills = ToBillResponses(bills, payments)
	return &UpsertBookingResult{
		Booking:             resp,
		Created:             created,
		BillsGenerated:      len(bills),
		PaymentsReallocated: len(payments),
		Ledger:              ledger,
	}, nil
}

func (s *BookingService) resolveDuration(ctx context.Context, repos TransactionalRepositories, id *uuid.UUID) (*booking.Duration, error) {
	if id == nil {
		return nil, nil
	}
	duration, err := repos.CatalogRepo().FindDuration(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("failed to load duration: %w", err)
	}
	if duration == nil {
		return nil, ErrDurationNotFound
	}
	return duration, nil
}

func (s *BookingService) checkDirectory(ctx context.Context, repos TransactionalRepositories, roomID, tenantID uuid.UUID) error {
	ok, err := repos.DirectoryRepo().RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !ok {
		return ErrRoomNotFound
	}
	ok, err = repos.DirectoryRepo().TenantExists(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to check tenant: %w", err)
	}
	if !ok {
		return ErrTenantNotFound
	}
	return nil
}

// upsertDeposit creates, re-prices or removes the booking deposit. Only an unpaid deposit may
// change amount or disappear.
func (s *BookingService) upsertDeposit(ctx context.Context, repos TransactionalRepositories, bookingID uuid.UUID, req UpsertBookingRequest) (*booking.Deposit, error) {
	current, err := repos.DepositRepo().FindByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deposit: %w", err)
	}

	switch {
	case !req.wantsDeposit() && current == nil:
		return nil, nil
	case !req.wantsDeposit():
		if current.Status != booking.DepositStatusUnpaid {
			return nil, ErrDepositFunded
		}
		if err := repos.DepositRepo().Delete(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("failed to delete deposit: %w", err)
		}
		return nil, nil
	case current == nil:
		deposit, err := booking.NewDeposit(bookingID, *req.DepositAmount)
		if err != nil {
			return nil, err
		}
		if err := repos.DepositRepo().Save(ctx, deposit); err != nil {
			return nil, fmt.Errorf("failed to save deposit: %w", err)
		}
		return deposit, nil
	default:
		if current.Amount.Equal(*req.DepositAmount) {
			return current, nil
		}
		if err := current.ChangeAmount(*req.DepositAmount); err != nil {
			return nil, err
		}
		if err := repos.DepositRepo().Save(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to save deposit: %w", err)
		}
		return current, nil
	}
}

// DeleteBooking removes a booking with its bills, deposit, payments, allocations and ledger
// rows. The result carries a warning when recorded payments were discarded.
func (s *BookingService) DeleteBooking(ctx context.Context, id uuid.UUID) (*DeleteBookingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBookingID, id.String())
	ctx = logger.WithBookingID(ctx, id.String())

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	result := &DeleteBookingResult{BookingID: id}
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BookingRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}

		bills, err := repos.BillRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		payments, err := repos.PaymentRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		for _, p := range payments {
			n, err := removeLedgerRows(ctx, repos, booking.RelatedKindPayment, p.ID)
			if err != nil {
				return err
			}
			result.RemovedTransactions += n
			if err := repos.PaymentRepo().Delete(ctx, p.ID); err != nil {
				return fmt.Errorf("failed to delete payment %s: %w", p.ID, err)
			}
		}

		deposit, err := repos.DepositRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		if deposit != nil {
			n, err := removeLedgerRows(ctx, repos, booking.RelatedKindDeposit, deposit.ID)
			if err != nil {
				return err
			}
			result.RemovedTransactions += n
			if err := repos.DepositRepo().Delete(ctx, deposit.ID); err != nil {
				return fmt.Errorf("failed to delete deposit: %w", err)
			}
		}

		if err := repos.PaymentRepo().DeleteAllocationsByBooking(ctx, id); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
		if err := repos.BillRepo().DeleteByBooking(ctx, id); err != nil {
			return fmt.Errorf("failed to delete bills: %w", err)
		}
		if err := repos.BookingRepo().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}

		result.RemovedBills = len(bills)
		result.RemovedPayments = len(payments)
		if len(payments) > 0 {
			result.Warning = DeleteBookingWarning
		}
		events.add(booking.NewBookingDeletedEvent(id, len(payments)))
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if result.Warning != "" {
		logger.WithLogger(ctx, s.logger).Warn("booking deleted with recorded payments",
			zap.Int("removed_payments", result.RemovedPayments),
			zap.Int("removed_transactions", result.RemovedTransactions),
		)
	}
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

// Checkout schedules the end of a rolling booking. Bills already generated are kept.
func (s *BookingService) Checkout(ctx context.Context, id uuid.UUID, endDate time.Time) (*BookingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "checkout")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBookingID, id.String())

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var resp BookingResponse
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BookingRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}
		if err := b.Checkout(endDate); err != nil {
			return err
		}
		if err := repos.BookingRepo().SaveWithLock(ctx, b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}
		events.collect(b)
		resp = ToBookingResponse(b)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	publish(ctx, s.eventPublisher, events)
	return &resp, nil
}

// ExtendRollingBills adds the bills a rolling booking has accrued up to the current month
func (s *BookingService) ExtendRollingBills(ctx context.Context, id uuid.UUID) (*ExtendBillsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "extend_bills")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBookingID, id.String())

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	result := &ExtendBillsResult{BookingID: id, Added: make([]BillResponse, 0)}
	var events pendingEvents
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BookingRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}
		if !b.Term().IsRolling() {
			return ErrNotRolling
		}
		deposit, err := repos.DepositRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		_, added, err := s.reconciler.extendBills(ctx, repos, b, deposit)
		if err != nil {
			return err
		}
		if len(added) > 0 {
			result.Added = ToBillResponses(added, nil)
			events.add(booking.NewBillsGeneratedEvent(id, added))
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrBillCount, len(result.Added))
	publish(ctx, s.eventPublisher, events)
	return result, nil
}

// GetBooking returns a booking with its deposit and bills
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*BookingResponse, error) {
	var resp BookingResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BookingRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}
		deposit, err := repos.DepositRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}
		bills, err := repos.BillRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		payments, err := repos.PaymentRepo().FindByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		resp = ToBookingResponse(b)
		resp.Deposit = ToDepositResponse(deposit)
		resp.Bills = ToBillResponses(bills, payments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBookings lists bookings with pagination
func (s *BookingService) ListBookings(ctx context.Context, filter BookingListFilter) ([]BookingResponse, int64, error) {
	domainFilter := booking.BookingFilter{
		Filter:    pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, "start_date"),
		RoomID:    filter.RoomID,
		TenantID:  filter.TenantID,
		IsRolling: filter.IsRolling,
	}

	var responses []BookingResponse
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		bookings, count, err := repos.BookingRepo().FindAll(ctx, domainFilter)
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}
		responses = make([]BookingResponse, 0, len(bookings))
		for _, b := range bookings {
			responses = append(responses, ToBookingResponse(b))
		}
		total = count
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// ListBills returns the bills of a booking with their payment progress
func (s *BookingService) ListBills(ctx context.Context, bookingID uuid.UUID) ([]BillResponse, error) {
	var responses []BillResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureBooking(ctx, repos, bookingID); err != nil {
			return err
		}
		bills, err := repos.BillRepo().FindByBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		payments, err := repos.PaymentRepo().FindByBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		responses = ToBillResponses(bills, payments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func ensureBooking(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) error {
	b, err := repos.BookingRepo().FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return ErrBookingNotFound
	}
	return nil
}

func pageFilter(page, pageSize int, orderBy, orderDir, defaultOrder string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	f.OrderBy = defaultOrder
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}
