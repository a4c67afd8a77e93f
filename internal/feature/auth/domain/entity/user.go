// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User is a registered journal author.
type User struct {
	ID uint `gorm:"primaryKey"`

	// Username is the login name and the author name shown on public entries.
	Username string `gorm:"uniqueIndex;size:150;not null"`

	// Email must be unique across all users.
	Email string `gorm:"uniqueIndex;size:254;not null"`

	// Password is the bcrypt hash, never the plaintext.
	Password string `gorm:"size:255;not null"`

	// Country is optional.
	Country string `gorm:"size:50"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
