package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Path parameters copied onto spans when present
var tracedParams = map[string]string{
	"id": "resource.id",
}

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin and adds request attributes to the server span.
// The span name follows gin's route pattern, e.g. "POST /api/v1/bookings/:id/checkout".
// Responses with status >= 500 mark the span as failed; 4xx only records the status.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// otelgin ends the span after the rest of the chain has run, so SpanEnricher
	// placed after it still sees a recording span.
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher runs inside the otelgin span and records request attributes and the response status.
// Register it directly after TracingWithConfig.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		for param, key := range tracedParams {
			if v := c.Param(param); v != "" {
				span.SetAttributes(attribute.String(key, v))
			}
		}

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
