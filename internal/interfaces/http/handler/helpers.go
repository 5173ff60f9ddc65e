package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DateLayout is the calendar date format used by every date field of the API
const DateLayout = "2006-01-02"

// parseDate parses a calendar date. Validation has already checked the layout.
func parseDate(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

// parseOptionalDate returns nil for an empty string
func parseOptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseDate(s)
	return &t
}

// parseOptionalUUID returns nil for an empty string
func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// pathID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) pathID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid "+resource+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
