package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when BillingMetrics is built without a meter.
var ErrMeterNil = errors.New("billing metrics: meter cannot be nil")

// BillingSnapshot is the point-in-time state sampled by the periodic collector.
type BillingSnapshot struct {
	ActiveBookings   int64
	HeldDeposits     int64
	OutstandingTotal decimal.Decimal
}

// BillingSnapshotProvider reads BillingSnapshot from storage.
type BillingSnapshotProvider interface {
	BillingSnapshot(ctx context.Context, asOf time.Time) (BillingSnapshot, error)
}

// BillingMetricsConfig configures BillingMetrics.
type BillingMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // defaults to 5m
	Provider        BillingSnapshotProvider
	Now             func() time.Time
}

// BillingMetrics records bill generation, payment and deposit activity.
// Monetary counters are in whole currency units.
type BillingMetrics struct {
	logger *zap.Logger

	billsGenerated    *Counter
	billedAmount      *Counter
	paymentsRecorded  *Counter
	paymentAmount     *Counter
	depositTransition *Counter

	activeBookings   *Gauge
	heldDeposits     *Gauge
	outstandingTotal *Gauge

	provider BillingSnapshotProvider
	interval time.Duration
	now      func() time.Time

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewBillingMetrics registers the billing instruments on cfg.Meter.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BillingMetrics{
		logger:   cfg.Logger,
		provider: cfg.Provider,
		interval: cfg.CollectInterval,
		now:      cfg.Now,
		stopChan: make(chan struct{}),
	}
	if bm.logger == nil {
		bm.logger = zap.NewNop()
	}
	if bm.interval <= 0 {
		bm.interval = 5 * time.Minute
	}
	if bm.now == nil {
		bm.now = time.Now
	}

	counters := []struct {
		dst               **Counter
		name, desc, unit string
	}{
		{&bm.billsGenerated, "billing_bills_generated_total", "Bills written by generation or extension", "{bill}"},
		{&bm.billedAmount, "billing_billed_amount_total", "Sum of generated bill totals", "{currency}"},
		{&bm.paymentsRecorded, "billing_payments_recorded_total", "Payments created or revised", "{payment}"},
		{&bm.paymentAmount, "billing_payment_amount_total", "Sum of recorded payment amounts", "{currency}"},
		{&bm.depositTransition, "billing_deposit_transitions_total", "Deposit status transitions", "{transition}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	gauges := []struct {
		dst               **Gauge
		name, desc, unit string
	}{
		{&bm.activeBookings, "billing_active_bookings", "Bookings not yet ended", "{booking}"},
		{&bm.heldDeposits, "billing_held_deposits", "Deposits currently held", "{deposit}"},
		{&bm.outstandingTotal, "billing_outstanding_amount", "Unpaid amount on bills already due", "{currency}"},
	}
	for _, g := range gauges {
		gauge, err := NewGauge(cfg.Meter, g.name, g.desc, g.unit)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}
	return bm, nil
}

// RecordBillsGenerated counts bills written for one booking.
func (bm *BillingMetrics) RecordBillsGenerated(ctx context.Context, count int, total decimal.Decimal) {
	if count <= 0 {
		return
	}
	bm.billsGenerated.Add(ctx, int64(count))
	bm.billedAmount.Add(ctx, total.IntPart())
}

// RecordPayment counts a created or revised payment.
func (bm *BillingMetrics) RecordPayment(ctx context.Context, status string, amount decimal.Decimal) {
	bm.paymentsRecorded.Inc(ctx, AttrPaymentStatus.String(status))
	bm.paymentAmount.Add(ctx, amount.IntPart(), AttrPaymentStatus.String(status))
}

// RecordDepositTransition counts a deposit moving to status.
func (bm *BillingMetrics) RecordDepositTransition(ctx context.Context, status string) {
	bm.depositTransition.Inc(ctx, AttrDepositStatus.String(status))
}

// StartPeriodicCollection samples the snapshot provider until ctx is done or
// Stop is called. Only the first call starts a collector.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context) {
	if bm.provider == nil {
		bm.logger.Debug("No billing snapshot provider configured")
		return
	}
	bm.collectOnce.Do(func() {
		go bm.run(ctx)
	})
}

func (bm *BillingMetrics) run(ctx context.Context) {
	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()

	bm.collect(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collect(ctx)
		}
	}
}

func (bm *BillingMetrics) collect(ctx context.Context) {
	snap, err := bm.provider.BillingSnapshot(ctx, bm.now())
	if err != nil {
		bm.logger.Warn("Failed to collect billing snapshot", zap.Error(err))
		return
	}
	bm.activeBookings.Record(ctx, snap.ActiveBookings)
	bm.heldDeposits.Record(ctx, snap.HeldDeposits)
	bm.outstandingTotal.Record(ctx, snap.OutstandingTotal.IntPart())
}

// Stop halts periodic collection. Safe to call more than once.
func (bm *BillingMetrics) Stop() {
	bm.stopOnce.Do(func() { close(bm.stopChan) })
}
