package validation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ExistsFunc reports whether value is already stored. Repositories provide it
// so that the rules stay free of persistence concerns.
type ExistsFunc func(ctx context.Context, value string) (bool, error)

var validate = validator.New()

// Text fails with ErrInvalidFormat when a required value is blank or when
// value is longer than max characters.
func Text(field, value string, max int, required bool) error {
	n := utf8.RuneCountInString(value)
	switch {
	case required && strings.TrimSpace(value) == "":
		return &FieldError{Field: field, Message: "This field is required.", Err: ErrInvalidFormat}
	case n > max:
		return &FieldError{
			Field:   field,
			Message: fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n),
			Err:     ErrInvalidFormat,
		}
	}
	return nil
}

// Email fails with ErrInvalidFormat when email is not a valid address and
// with ErrDuplicate when another account already uses it.
func Email(ctx context.Context, email string, exists ExistsFunc) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return &FieldError{Field: "email", Message: "This email is not valid.", Err: ErrInvalidFormat}
	}
	taken, err := exists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email availability: %w", err)
	}
	if taken {
		return &FieldError{Field: "email", Message: "This email is already used by another account.", Err: ErrDuplicate}
	}
	return nil
}

// Username fails with ErrDuplicate when the name is already registered.
func Username(ctx context.Context, username string, exists ExistsFunc) error {
	taken, err := exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username availability: %w", err)
	}
	if taken {
		return &FieldError{Field: "username", Message: "This username is already taken.", Err: ErrDuplicate}
	}
	return nil
}

// Password checks the confirmation before the length.
func Password(password, repeated string) error {
	if password != repeated {
		return &FieldError{Field: "password", Message: "Passwords do not match.", Err: ErrMismatch}
	}
	if len(password) < MinPasswordLength {
		return &FieldError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength),
			Err:     ErrTooShort,
		}
	}
	return nil
}

// NotFutureDate rejects a missing date as well as one strictly after now.
func NotFutureDate(t *time.Time, now time.Time) error {
	if t == nil || t.IsZero() || t.After(now) {
		return &FieldError{Field: "date", Message: "The date cannot be in the future.", Err: ErrFutureDate}
	}
	return nil
}

// UniqueWithinScope fails with ErrScopeConflict when value is one of existing.
// A nil existing slice is a caller bug and yields ErrInvalidInput; an empty,
// non-nil slice is a valid empty scope.
func UniqueWithinScope(field, value string, existing []string) error {
	if existing == nil {
		return fmt.Errorf("%w: scope values for %q must not be nil", ErrInvalidInput, field)
	}
	if slices.Contains(existing, value) {
		return ScopeConflict(field)
	}
	return nil
}

// ScopeConflict is the failure reported for a value already used in the
// owner's scope. Storage layers that detect the collision themselves use it
// to report the same message.
func ScopeConflict(field string) *FieldError {
	return &FieldError{
		Field:   field,
		Message: "You are already using this name for another record, try a different one.",
		Err:     ErrScopeConflict,
	}
}
