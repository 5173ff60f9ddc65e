package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "upsert",
		telemetry.WithAttribute(telemetry.SpanAttrAllocationMode, "AUTO"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment.upsert", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "AUTO", attrMap(spans[0])["allocation_mode"].AsString())
}

func TestSetAttributes_BillingValues(t *testing.T) {
	sr := setupTestTracer(t)
	bookingID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "booking.upsert")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBookingID, bookingID,
		telemetry.SpanAttrBillCount, 4,
		telemetry.SpanAttrAmount, decimal.RequireFromString("6750000"),
		42, "ignored non-string key",
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrDepositStatus, "HELD")
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, bookingID.String(), attrs["booking_id"].AsString())
	assert.Equal(t, int64(4), attrs["bill_count"].AsInt64())
	assert.Equal(t, "6750000", attrs["amount"].AsString())
	assert.Equal(t, "HELD", attrs["deposit_status"].AsString())
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "payment.delete")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("payment not found"))
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "payment not found", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestSetOKAndAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "booking.extend_bills")
	telemetry.AddEvent(span, "bills_extended", "added", 2)
	telemetry.SetOK(span)
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Ok, got.Status().Code)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "bills_extended", got.Events()[0].Name)
}

func TestNilSpanHelpersAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}

func TestTraceAndSpanIDs(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, parent := telemetry.StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := telemetry.StartSpan(ctx, "child")
	defer child.End()

	assert.Len(t, telemetry.GetTraceID(ctx), 32)
	assert.Equal(t, telemetry.GetTraceID(ctx), telemetry.GetTraceID(childCtx))
	assert.NotEqual(t, telemetry.GetSpanID(ctx), telemetry.GetSpanID(childCtx))
	assert.Equal(t, child, telemetry.SpanFromContext(childCtx))
}
