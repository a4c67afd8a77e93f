// Package entity defines the domain entities for the collections feature.
package entity

import "time"

// Collection groups entries of one owner under a name that is unique for
// that owner.
type Collection struct {
	ID        uint
	Name      string
	Detail    string
	UserID    uint
	CreatedAt time.Time
	UpdatedAt time.Time
}
