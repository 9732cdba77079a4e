package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/middleware"
	"github.com/lethabomaepa11/rocketsales-sub001/pkg/logger"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
)

// respondError maps service errors onto HTTP statuses and a stable code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validation *service.ValidationError
		state      *service.StateError
		conflict   *service.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "validation_error",
			"field": validation.Field,
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied", "code": "permission_denied"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":               err.Error(),
			"code":                "conflicting_renewal",
			"existing_renewal_id": conflict.ExistingRenewalID,
		})
	case errors.As(err, &state):
		code := "invalid_state"
		if errors.Is(err, service.ErrInvalidTransition) {
			code = "invalid_transition"
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"code":      code,
			"current":   state.Current,
			"requested": state.Requested,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	default:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal_error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "validation_error"})
}

// principal builds the caller identity from the token. Unknown role strings
// are dropped, so a caller holding none of the known roles is denied.
func principal(c *gin.Context) service.Principal {
	return service.Principal{
		ID:    middleware.GetUsername(c),
		Roles: service.NormalizeRoles(middleware.GetRoles(c)),
	}
}

// parseDate accepts RFC 3339 timestamps and bare dates (midnight UTC).
func parseDate(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}
	}
	return t, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &service.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	return &n, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &service.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a boolean", raw)}
	}
	return &b, nil
}
