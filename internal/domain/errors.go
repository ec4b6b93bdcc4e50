package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidFormat         = errors.New("invalid_format")
	ErrInstrumentNotFound    = errors.New("instrument_not_found")
	ErrInvalidInstrument     = errors.New("invalid_instrument")
	ErrTradeNotFound         = errors.New("trade_not_found")
	ErrAlreadyConfirmed      = errors.New("already_confirmed")
	ErrCannotExecuteRejected = errors.New("cannot_execute_rejected")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrSystemFailure         = errors.New("system_failure")
	ErrWebhookNotFound       = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
