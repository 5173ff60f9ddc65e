package handler

import "github.com/hms/backend/internal/interfaces/http/dto"

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// HealthData is the body of the health endpoints
// @Description Service health information
type HealthData struct {
	Status   string            `json:"status" example:"ok"`
	Checks   map[string]string `json:"checks,omitempty"`
	Version  string            `json:"version,omitempty" example:"1.0.0"`
	Timezone string            `json:"timezone,omitempty" example:"Asia/Jakarta"`
}
