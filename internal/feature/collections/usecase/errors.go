// Package usecase implements the business logic for the collections feature.
package usecase

import "errors"

var (
	// ErrCollectionNotFound is returned when no collection has the requested ID.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrForbidden is returned when the collection belongs to another user.
	ErrForbidden = errors.New("collection belongs to another user")

	// ErrNameTaken is returned by repositories when the owner already has a
	// collection with the same name.
	ErrNameTaken = errors.New("collection name already used by owner")
)
