// Package validation holds the field rules shared by the journal features and
// the error taxonomy they report.
package validation

import (
	"errors"
	"strings"
)

// Rule failures. Every FieldError wraps exactly one of these, so callers can
// classify a failure with errors.Is.
var (
	// ErrInvalidFormat indicates a value that is syntactically wrong (bad email, unparsable date).
	ErrInvalidFormat = errors.New("invalid format")

	// ErrDuplicate indicates a value that must be globally unique and is already taken.
	ErrDuplicate = errors.New("duplicate value")

	// ErrMismatch indicates that a confirmation value differs from the original.
	ErrMismatch = errors.New("values do not match")

	// ErrTooShort indicates a value below its minimum length.
	ErrTooShort = errors.New("value too short")

	// ErrFutureDate indicates a missing date or a date after the current time.
	ErrFutureDate = errors.New("date is in the future")

	// ErrScopeConflict indicates a value already used inside the owner's scope.
	ErrScopeConflict = errors.New("value already used in scope")

	// ErrInvalidInput signals a programming mistake in a caller of this package.
	// It is never wrapped in a FieldError and must not be shown to users.
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError ties a rule failure to a form field and a user-facing message.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Errors accumulates field failures so that a request is rejected only after
// every independent field has been checked.
type Errors []*FieldError

// Collect appends err when it is a field failure. Any other non-nil error is
// handed back to the caller, who is expected to abort.
func (es *Errors) Collect(err error) error {
	if err == nil {
		return nil
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		*es = append(*es, fe)
		return nil
	}
	return err
}

// Add records a failure for field.
func (es *Errors) Add(field, message string, kind error) {
	*es = append(*es, &FieldError{Field: field, Message: message, Err: kind})
}

// HasErrors reports whether at least one failure was collected.
func (es Errors) HasErrors() bool {
	return len(es) > 0
}

// Err returns es as an error, or nil when nothing was collected.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// Messages returns the user-facing messages in collection order.
func (es Errors) Messages() []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Message)
	}
	return out
}

// Field returns the messages recorded for one field.
func (es Errors) Field(name string) []string {
	var out []string
	for _, e := range es {
		if e.Field == name {
			out = append(out, e.Message)
		}
	}
	return out
}

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, 0, len(es))
	for _, e := range es {
		out = append(out, e)
	}
	return out
}

// AsErrors extracts the accumulated failures from err, if any.
func AsErrors(err error) (Errors, bool) {
	var es Errors
	if errors.As(err, &es) {
		return es, true
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return Errors{fe}, true
	}
	return nil, false
}
