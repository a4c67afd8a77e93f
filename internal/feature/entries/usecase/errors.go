// Package usecase implements the business logic for the entries feature.
package usecase

import "errors"

var (
	// ErrEntryNotFound is returned when no entry has the requested ID.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrForbidden is returned when the entry belongs to another user.
	ErrForbidden = errors.New("entry belongs to another user")
)
