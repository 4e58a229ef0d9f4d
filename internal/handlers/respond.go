package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/revenue/api/internal/assessment"
	apierrors "github.com/stwalsh4118/revenue/api/internal/errors"
	"github.com/stwalsh4118/revenue/api/internal/lifecycle"
	"github.com/stwalsh4118/revenue/api/internal/paytoken"
	"github.com/stwalsh4118/revenue/api/internal/rates"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// respondError maps a service error onto the API error envelope. fallback is
// the client-facing message for unexpected failures.
func respondError(c *gin.Context, err error, fallback string) {
	var lookup *rates.LookupError

	switch {
	case errors.As(err, &lookup):
		apierrors.ConfigNotFound(c, err.Error(), map[string]interface{}{
			"kind": lookup.Kind,
			"key":  lookup.Key,
		})
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, rates.ErrInvalidConfig),
		errors.Is(err, assessment.ErrInvalidInput):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, paytoken.ErrInvalidToken):
		apierrors.Unauthorized(c, "Payment token is invalid or expired")
	case errors.Is(err, lifecycle.ErrPreconditionFailed):
		apierrors.PreconditionFailed(c, err.Error(), nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		apierrors.Conflict(c, apierrors.ErrConflict, err.Error(), nil)
	case errors.Is(err, rates.ErrConfigConflict):
		apierrors.Conflict(c, apierrors.ErrConfigConflict, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, fallback, err)
	}
}

// errorStatus is the HTTP status respondError writes for err.
func errorStatus(err error) int {
	var lookup *rates.LookupError

	switch {
	case errors.As(err, &lookup):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, rates.ErrInvalidConfig),
		errors.Is(err, assessment.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, paytoken.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrPreconditionFailed),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, rates.ErrConfigConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondBindError writes the envelope for a request body or query that
// failed to bind.
func respondBindError(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}

// idParam parses a positive integer path parameter. It writes a 400 and
// returns false when the value is not usable.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		apierrors.BadRequest(c, "Invalid "+name, map[string]interface{}{name: c.Param(name)})
		return 0, false
	}
	return id, true
}
