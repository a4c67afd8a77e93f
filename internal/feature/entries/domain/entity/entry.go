// Package entity defines the domain entities for the entries feature.
package entity

import (
	"strings"
	"time"
)

// EntryType controls who can see an entry.
type EntryType string

const (
	TypePrivate EntryType = "private"
	TypePublic  EntryType = "public"
)

// Valid reports whether t is one of the known types.
func (t EntryType) Valid() bool {
	return t == TypePrivate || t == TypePublic
}

// Label is the human readable name of t.
func (t EntryType) Label() string {
	switch t {
	case TypePrivate:
		return "Private"
	case TypePublic:
		return "Public"
	default:
		return string(t)
	}
}

// Types lists the entry types in display order.
var Types = []EntryType{TypePrivate, TypePublic}

// Entry is a dated journal record owned by one user.
type Entry struct {
	ID            uint
	Detail        string
	Date          time.Time
	Type          EntryType
	ImageKey      string
	UserID        uint
	CollectionIDs []uint
	// Author is the owner's username. Only filled by listings that join users.
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows an owner's entry listing. Zero values do not restrict.
type Filter struct {
	CollectionID *uint
	Type         EntryType
	Query        string
}

// Tokens splits Query on whitespace. Each token must occur in the detail.
func (f Filter) Tokens() []string {
	return strings.Fields(f.Query)
}

// IsZero reports whether f restricts nothing.
func (f Filter) IsZero() bool {
	return f.CollectionID == nil && f.Type == "" && len(f.Tokens()) == 0
}

// FoldText は検索用に s を小文字化します（Unicode 全体が対象）。
func FoldText(s string) string {
	return strings.ToLower(s)
}

// Matches evaluates the filter against a single entry in memory.
func (f Filter) Matches(e *Entry) bool {
	if f.CollectionID != nil {
		found := false
		for _, id := range e.CollectionIDs {
			if id == *f.CollectionID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	detail := FoldText(e.Detail)
	for _, tok := range f.Tokens() {
		if !strings.Contains(detail, FoldText(tok)) {
			return false
		}
	}
	return true
}
