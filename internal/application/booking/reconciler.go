package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
)

// reconciler holds the recomputation steps shared by the booking, payment and deposit
// services. Every method runs against the repositories of the caller's transaction.
type reconciler struct {
	generator  *booking.BillGenerator
	strategies *booking.AllocationStrategyFactory
	now        func() time.Time
	location   *time.Location
}

func newReconciler() *reconciler {
	return &reconciler{
		generator:  booking.NewBillGenerator(),
		strategies: booking.NewAllocationStrategyFactory(),
		now:        time.Now,
		location:   time.UTC,
	}
}

// today is the current calendar date in the billing time zone
func (r *reconciler) today() time.Time {
	return booking.DateOf(r.now().In(r.location))
}

func (r *reconciler) catalogFor(ctx context.Context, repos TransactionalRepositories, b *booking.Booking) (booking.AddOnCatalog, error) {
	if len(b.AddOns) == 0 {
		return booking.AddOnCatalog{}, nil
	}
	seen := make(map[uuid.UUID]bool, len(b.AddOns))
	ids := make([]uuid.UUID, 0, len(b.AddOns))
	for _, a := range b.AddOns {
		if !seen[a.AddOnID] {
			seen[a.AddOnID] = true
			ids = append(ids, a.AddOnID)
		}
	}
	addOns, err := repos.CatalogRepo().FindAddOns(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load add-ons: %w", err)
	}
	return booking.NewAddOnCatalog(addOns), nil
}

func (r *reconciler) generationInput(ctx context.Context, repos TransactionalRepositories, b *booking.Booking, deposit *booking.Deposit) (booking.GenerationInput, error) {
	catalog, err := r.catalogFor(ctx, repos, b)
	if err != nil {
		return booking.GenerationInput{}, err
	}
	return booking.GenerationInput{
		Booking: b,
		Deposit: deposit,
		Catalog: catalog,
		Today:   r.today(),
	}, nil
}

// regenerateBills drops every bill of the booking together with the allocations pointing at
// them and writes a freshly generated set.
func (r *reconciler) regenerateBills(ctx context.Context, repos TransactionalRepositories, b *booking.Booking, deposit *booking.Deposit) ([]*booking.Bill, error) {
	if err := repos.PaymentRepo().DeleteAllocationsByBooking(ctx, b.ID); err != nil {
		return nil, fmt.Errorf("failed to clear allocations: %w", err)
	}
	if err := repos.BillRepo().DeleteByBooking(ctx, b.ID); err != nil {
		return nil, fmt.Errorf("failed to delete bills: %w", err)
	}
	in, err := r.generationInput(ctx, repos, b, deposit)
	if err != nil {
		return nil, err
	}
	bills, err := r.generator.Generate(in)
	if err != nil {
		return nil, err
	}
	if err := repos.BillRepo().SaveAll(ctx, bills); err != nil {
		return nil, fmt.Errorf("failed to save bills: %w", err)
	}
	return bills, nil
}

// extendBills appends the bills a rolling booking has accrued since its last due date.
// It returns the full bill set and the bills that were added.
func (r *reconciler) extendBills(ctx context.Context, repos TransactionalRepositories, b *booking.Booking, deposit *booking.Deposit) ([]*booking.Bill, []*booking.Bill, error) {
	bills, err := repos.BillRepo().FindByBooking(ctx, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bills: %w", err)
	}
	if !b.Term().IsRolling() {
		return bills, nil, nil
	}
	in, err := r.generationInput(ctx, repos, b, deposit)
	if err != nil {
		return nil, nil, err
	}

	var added []*booking.Bill
	if last, ok := booking.LastDueDate(bills); ok {
		added, err = r.generator.Extend(in, last)
	} else {
		added, err = r.generator.Generate(in)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(added) == 0 {
		return bills, nil, nil
	}
	if err := repos.BillRepo().SaveAll(ctx, added); err != nil {
		return nil, nil, fmt.Errorf("failed to save bills: %w", err)
	}
	all := append(bills, added...)
	booking.SortBillsByDueDate(all)
	return all, added, nil
}

// allocate replaces the allocations of p. Failed payments carry none.
func (r *reconciler) allocate(p *booking.Payment, s booking.AllocationStrategy, bills []*booking.Bill, payments []*booking.Payment) error {
	if p.Status == booking.PaymentStatusFailed {
		return p.ReplaceAllocations(nil)
	}
	result, err := s.Allocate(p.Amount, booking.BuildAllocationTargets(bills, payments, p.ID))
	if err != nil {
		return err
	}
	return p.ReplaceAllocations(result)
}

// reallocatePayments re-runs auto allocation for every payment, oldest payment date first,
// against a bill set whose allocations were cleared.
func (r *reconciler) reallocatePayments(ctx context.Context, repos TransactionalRepositories, bills []*booking.Bill, payments []*booking.Payment) error {
	booking.SortPaymentsByDate(payments)
	auto := booking.NewAutoAllocationStrategy()
	processed := make([]*booking.Payment, 0, len(payments))
	for _, p := range payments {
		if err := r.allocate(p, auto, bills, processed); err != nil {
			return fmt.Errorf("failed to reallocate payment %s: %w", p.ID, err)
		}
		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment %s: %w", p.ID, err)
		}
		processed = append(processed, p)
	}
	return nil
}

// syncLedger makes the ledger mirror the current allocations of every payment of a booking
// and the refund state of its deposit. The deposit status follows its funding.
func (r *reconciler) syncLedger(ctx context.Context, repos TransactionalRepositories, bills []*booking.Bill, payments []*booking.Payment, deposit *booking.Deposit) (LedgerChanges, error) {
	split := booking.SplitFunding(bills, payments)

	var depositID *uuid.UUID
	if deposit != nil {
		id := deposit.ID
		depositID = &id
	}

	plan := booking.LedgerPlan{}
	for _, p := range payments {
		existing, err := repos.TransactionRepo().FindByRelated(ctx, booking.RelatedKindPayment, p.ID)
		if err != nil {
			return LedgerChanges{}, fmt.Errorf("failed to load ledger rows of payment %s: %w", p.ID, err)
		}
		plan.Merge(booking.PlanPaymentLedger(p, split.ByPayment[p.ID], depositID, existing))
	}

	if deposit != nil {
		if deposit.SyncFunding(split.DepositFunded) {
			if err := repos.DepositRepo().Save(ctx, deposit); err != nil {
				return LedgerChanges{}, fmt.Errorf("failed to save deposit: %w", err)
			}
		}
		existing, err := repos.TransactionRepo().FindByRelated(ctx, booking.RelatedKindDeposit, deposit.ID)
		if err != nil {
			return LedgerChanges{}, fmt.Errorf("failed to load ledger rows of deposit: %w", err)
		}
		plan.Merge(booking.PlanDepositRefundLedger(deposit, existing))
	}

	return applyLedgerPlan(ctx, repos, plan)
}

func applyLedgerPlan(ctx context.Context, repos TransactionalRepositories, plan booking.LedgerPlan) (LedgerChanges, error) {
	for _, tx := range plan.Delete {
		if err := repos.TransactionRepo().Delete(ctx, tx.ID); err != nil {
			return LedgerChanges{}, fmt.Errorf("failed to delete transaction %s: %w", tx.ID, err)
		}
	}
	for _, tx := range plan.Update {
		if err := repos.TransactionRepo().Save(ctx, tx); err != nil {
			return LedgerChanges{}, fmt.Errorf("failed to update transaction %s: %w", tx.ID, err)
		}
	}
	for _, tx := range plan.Create {
		if err := repos.TransactionRepo().Save(ctx, tx); err != nil {
			return LedgerChanges{}, fmt.Errorf("failed to create transaction: %w", err)
		}
	}
	return LedgerChanges{
		Created: len(plan.Create),
		Updated: len(plan.Update),
		Deleted: len(plan.Delete),
	}, nil
}

// removeLedgerRows deletes every row tagged with kind/id and returns how many went
func removeLedgerRows(ctx context.Context, repos TransactionalRepositories, kind booking.RelatedKind, id uuid.UUID) (int, error) {
	rows, err := repos.TransactionRepo().FindByRelated(ctx, kind, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger rows: %w", err)
	}
	for _, tx := range rows {
		if err := repos.TransactionRepo().Delete(ctx, tx.ID); err != nil {
			return 0, fmt.Errorf("failed to delete transaction %s: %w", tx.ID, err)
		}
	}
	return len(rows), nil
}

// pendingEvents collects domain events raised inside a transaction so they can be
// published once it commits.
type pendingEvents []shared.DomainEvent

type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

func (e *pendingEvents) collect(sources ...eventSource) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		*e = append(*e, src.GetDomainEvents()...)
		src.ClearDomainEvents()
	}
}

func (e *pendingEvents) add(events ...shared.DomainEvent) {
	*e = append(*e, events...)
}

func publish(ctx context.Context, publisher shared.EventPublisher, events pendingEvents) {
	if publisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = publisher.Publish(ctx, events...)
}
