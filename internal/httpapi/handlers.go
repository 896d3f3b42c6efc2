package httpapi

import (
	"errors"
	"net/http"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/audit"
	"outreach-crm/internal/auth"
	"outreach-crm/internal/capacity"
	"outreach-crm/internal/eligibility"
	"outreach-crm/internal/pause"
	"outreach-crm/internal/reporting"
	"outreach-crm/internal/session"
	"outreach-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Queues   *eligibility.Service
	Sessions *session.Service
	Capacity *capacity.Monitor
	Pauses   *pause.Service
	Audit    *audit.Service
	Stats    *reporting.Service
}

// guardErrors are state-machine refusals; the caller can retry after fixing state.
var guardErrors = []error{
	session.ErrEmptyQueue,
	session.ErrInvalidTransition,
	session.ErrOutcomeRequired,
	session.ErrCallInProgress,
	session.ErrAtStart,
	session.ErrContactBusy,
	session.ErrNoCurrentContact,
}

func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsPersistence(err):
		return http.StatusServiceUnavailable
	}
	for _, g := range guardErrors {
		if errors.Is(err, g) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
	}
	body := gin.H{"error": err.Error()}
	var v *apperr.ValidationError
	if errors.As(err, &v) && v.Field != "" {
		body["field"] = v.Field
	}
	c.AbortWithStatusJSON(status, body)
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
}

// operator returns the caller's operator id or aborts with 401.
func operator(c *gin.Context) (string, bool) {
	id, err := auth.OperatorID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator_id required"})
		return "", false
	}
	return id, true
}

// bindOptional accepts an empty body as the zero value.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		badJSON(c)
		return false
	}
	return true
}
