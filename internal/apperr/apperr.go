// Package apperr defines the error kinds shared by every marketplace component.
//
// Services return the sentinels below (optionally wrapped with %w) or a
// *ValidationError. Transports map them to status codes with Code.
package apperr

import (
	"errors"
	"fmt"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrDuplicateApplication = errors.New("application already exists")
	ErrDuplicateFeedback    = errors.New("feedback already submitted")
	ErrAlreadyFilled        = errors.New("job already filled")
	ErrJobNotOpen           = errors.New("job is not open")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ─── Codes ───────────────────────────────────────────────────────────────────

// Code values are surfaced verbatim to API callers.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeInvalidState         = "INVALID_STATE"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeDuplicateApplication = "DUPLICATE_APPLICATION"
	CodeDuplicateFeedback    = "DUPLICATE_FEEDBACK"
	CodeAlreadyFilled        = "ALREADY_FILLED"
	CodeJobNotOpen           = "JOB_NOT_OPEN"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL"
)

var sentinelCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrInvalidState, CodeInvalidState},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrDuplicateApplication, CodeDuplicateApplication},
	{ErrDuplicateFeedback, CodeDuplicateFeedback},
	{ErrAlreadyFilled, CodeAlreadyFilled},
	{ErrJobNotOpen, CodeJobNotOpen},
}

// Code classifies err. Unknown errors are CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeValidation
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeInternal
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
