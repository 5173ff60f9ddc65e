package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hms/backend/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	version  string
	timezone string
	checks   map[string]HealthCheck
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version, timezone string) *HealthHandler {
	return &HealthHandler{
		version:  version,
		timezone: timezone,
		checks:   make(map[string]HealthCheck),
		timeout:  2 * time.Second,
	}
}

// AddCheck registers a readiness check, e.g. the database ping
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Live godoc
// @ID           health
//
//	@Summary		Liveness probe
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	APIResponse[HealthData]
//	@Router			/health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, HealthData{Status: "ok", Version: h.version, Timezone: h.timezone})
}

// Ready godoc
// @ID           ready
//
//	@Summary		Readiness probe
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	APIResponse[HealthData]
//	@Failure		503	{object}	APIResponse[HealthData]
//	@Router			/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = "unavailable"
			continue
		}
		results[name] = "ok"
	}

	data := HealthData{Status: status, Checks: results, Version: h.version, Timezone: h.timezone}
	if status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: data})
		return
	}
	h.Success(c, data)
}
