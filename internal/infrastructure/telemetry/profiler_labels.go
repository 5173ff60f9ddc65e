package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelDomain     = "domain"
	// ProfilingLabelRegion marks a code region such as "db_query".
	ProfilingLabelRegion = "region"
)

// Billing operations used as profiling label values.
const (
	OperationUpsertBooking   = "upsert_booking"
	OperationDeleteBooking   = "delete_booking"
	OperationExtendBills     = "extend_bills"
	OperationUpsertPayment   = "upsert_payment"
	OperationDeletePayment   = "delete_payment"
	OperationSimulatePayment = "simulate_payment"
	OperationDepositStatus   = "deposit_status"
)

// MaxLabelValueLength caps label values so that a runaway value cannot
// blow up profile storage.
const MaxLabelValueLength = 128

// HighCardinalityLabels are never forwarded to the profiler.
// Do not modify at runtime.
var HighCardinalityLabels = map[string]bool{
	"request_id":     true,
	"trace_id":       true,
	"span_id":        true,
	"booking_id":     true,
	"payment_id":     true,
	"transaction_id": true,
}

// WithProfilingLabels runs fn with pyroscope labels attached to the goroutine.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationUpsertPayment),
//	    func(c context.Context) {
//	        err = s.upsert(c, req)
//	    })
//
// Labels listed in HighCardinalityLabels are dropped. The map is copied, so
// callers may reuse it.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the pprof-only variant of WithProfilingLabels, useful in
// tests and when pyroscope is not running.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// sanitizeLabels returns sorted key/value pairs with empty, high-cardinality
// and malformed keys removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean := sanitizeLabelKey(key)
		if clean == "" {
			continue
		}
		pairs = append(pairs, clean, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases the key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// HTTPRequestLabels builds the labels attached by the profiling middleware.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}

// OperationLabels creates labels for a named operation.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}

// BillingOperationLabels tags a billing workflow (bill generation, allocation,
// ledger sync) for flame graph filtering.
func BillingOperationLabels(operation string) map[string]string {
	return OperationLabels(operation, map[string]string{ProfilingLabelDomain: "billing"})
}

// RegionLabels creates labels for a code region.
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extraLabels)
	return labels
}
