package models

import "errors"

var (
	ErrConnection     = errors.New("platform is not connected")
	ErrTransport      = errors.New("publish call failed")
	ErrAttemptTimeout = errors.New("publish attempt timed out")
	ErrRedirectState  = errors.New("redirect snapshot missing or unreadable")
	ErrValidation     = errors.New("validation failed")
	ErrBatchAborted   = errors.New("publish batch aborted")
	ErrNotFound       = errors.New("not found")
	ErrSessionBusy    = errors.New("wizard session is busy")
)

// ValidationError blocks a local transition; it never reaches the orchestrator.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
