package services

import (
	"errors"
	"time"

	"github.com/stwalsh4118/revenue/api/internal/assessment"
	"github.com/stwalsh4118/revenue/api/internal/lifecycle"
	"github.com/stwalsh4118/revenue/api/internal/paytoken"
	"github.com/stwalsh4118/revenue/api/internal/rates"
)

// Service-level errors shared by every use case.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrInvalidOTP = errors.New("one-time password does not match")
)

// clock returns the current time. Services hold one so tests can pin the day.
type clock func() time.Time

var clientErrors = []error{
	ErrNotFound,
	ErrValidation,
	ErrInvalidOTP,
	lifecycle.ErrPreconditionFailed,
	lifecycle.ErrInvalidTransition,
	rates.ErrConfigNotFound,
	rates.ErrConfigConflict,
	rates.ErrInvalidConfig,
	assessment.ErrInvalidInput,
	paytoken.ErrInvalidToken,
}

// isClientError reports whether err is an expected domain rejection rather
// than an infrastructure failure.
func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
