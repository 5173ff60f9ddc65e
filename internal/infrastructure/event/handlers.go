package event

import (
	"context"
	"fmt"

	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingRecorder receives billing activity derived from domain events.
// telemetry.BillingMetrics satisfies it.
type BillingRecorder interface {
	RecordBillsGenerated(ctx context.Context, count int, total decimal.Decimal)
	RecordPayment(ctx context.Context, status string, amount decimal.Decimal)
	RecordDepositTransition(ctx context.Context, status string)
}

// BillingMetricsHandler feeds bill, payment and deposit events into a BillingRecorder
type BillingMetricsHandler struct {
	recorder BillingRecorder
}

// NewBillingMetricsHandler creates a handler for the given recorder
func NewBillingMetricsHandler(recorder BillingRecorder) *BillingMetricsHandler {
	return &BillingMetricsHandler{recorder: recorder}
}

// EventTypes returns the events that carry billing activity
func (h *BillingMetricsHandler) EventTypes() []string {
	return []string{
		booking.EventTypeBillsGenerated,
		booking.EventTypePaymentRecorded,
		booking.EventTypeDepositStatusChanged,
	}
}

// Handle records the event on the recorder
func (h *BillingMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *booking.BillsGeneratedEvent:
		h.recorder.RecordBillsGenerated(ctx, e.BillCount, e.Total)
	case *booking.PaymentRecordedEvent:
		h.recorder.RecordPayment(ctx, e.Status.String(), e.Amount)
	case *booking.DepositStatusChangedEvent:
		h.recorder.RecordDepositTransition(ctx, string(e.To))
	default:
		return fmt.Errorf("unexpected event %s (%T)", event.EventType(), event)
	}
	return nil
}

// ActivityJournalHandler writes every event to the log as a serialized envelope
type ActivityJournalHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewActivityJournalHandler creates a journal handler. Events are logged at info level
// under the "activity" logger name.
func NewActivityJournalHandler(serializer *EventSerializer, logger *zap.Logger) *ActivityJournalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityJournalHandler{
		serializer: serializer,
		logger:     logger.Named("activity"),
	}
}

// EventTypes returns nil so the handler receives every event
func (h *ActivityJournalHandler) EventTypes() []string {
	return nil
}

// Handle logs the event envelope
func (h *ActivityJournalHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	data, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	h.logger.Info(event.EventType(),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.ByteString("envelope", data),
	)
	return nil
}

var (
	_ shared.EventHandler = (*BillingMetricsHandler)(nil)
	_ shared.EventHandler = (*ActivityJournalHandler)(nil)
)
