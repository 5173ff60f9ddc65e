package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

type stubSnapshotProvider struct {
	calls atomic.Int32
	snap  BillingSnapshot
	err   error
}

func (s *stubSnapshotProvider) BillingSnapshot(context.Context, time.Time) (BillingSnapshot, error) {
	s.calls.Add(1)
	return s.snap, s.err
}

func newTestBillingMetrics(t *testing.T, provider BillingSnapshotProvider) (*BillingMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	bm, err := NewBillingMetrics(BillingMetricsConfig{
		Meter:           sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("billing"),
		Logger:          zaptest.NewLogger(t),
		CollectInterval: time.Hour,
		Provider:        provider,
	})
	require.NoError(t, err)
	return bm, reader
}

func sumOf(t *testing.T, data map[string]metricdata.Aggregation, name string) int64 {
	t.Helper()
	sum, ok := data[name].(metricdata.Sum[int64])
	require.True(t, ok, name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := NewBillingMetrics(BillingMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestBillingMetrics_Counters(t *testing.T) {
	bm, reader := newTestBillingMetrics(t, nil)
	ctx := context.Background()

	bm.RecordBillsGenerated(ctx, 4, decimal.RequireFromString("6750000"))
	bm.RecordBillsGenerated(ctx, 0, decimal.RequireFromString("999"))
	bm.RecordPayment(ctx, "CONFIRMED", decimal.RequireFromString("5600000"))
	bm.RecordPayment(ctx, "FAILED", decimal.RequireFromString("100"))
	bm.RecordDepositTransition(ctx, "HELD")

	data := collect(t, reader)
	assert.Equal(t, int64(4), sumOf(t, data, "billing_bills_generated_total"))
	assert.Equal(t, int64(6750000), sumOf(t, data, "billing_billed_amount_total"))
	assert.Equal(t, int64(2), sumOf(t, data, "billing_payments_recorded_total"))
	assert.Equal(t, int64(5600100), sumOf(t, data, "billing_payment_amount_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "billing_deposit_transitions_total"))
}

func TestBillingMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubSnapshotProvider{snap: BillingSnapshot{
		ActiveBookings:   3,
		HeldDeposits:     2,
		OutstandingTotal: decimal.RequireFromString("1150000.50"),
	}}
	bm, reader := newTestBillingMetrics(t, provider)
	defer bm.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bm.StartPeriodicCollection(ctx)
	bm.StartPeriodicCollection(ctx)

	require.Eventually(t, func() bool { return provider.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	data := collect(t, reader)
	outstanding := data["billing_outstanding_amount"].(metricdata.Gauge[int64])
	require.Len(t, outstanding.DataPoints, 1)
	assert.Equal(t, int64(1150000), outstanding.DataPoints[0].Value)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestBillingMetrics_CollectErrorIsLogged(t *testing.T) {
	provider := &stubSnapshotProvider{err: errors.New("db down")}
	bm, reader := newTestBillingMetrics(t, provider)

	bm.collect(context.Background())

	data := collect(t, reader)
	_, recorded := data["billing_held_deposits"]
	assert.False(t, recorded)
}

func TestBillingMetrics_StopIdempotent(t *testing.T) {
	bm, _ := newTestBillingMetrics(t, nil)
	bm.StartPeriodicCollection(context.Background())
	assert.NotPanics(t, func() {
		bm.Stop()
		bm.Stop()
	})
}
