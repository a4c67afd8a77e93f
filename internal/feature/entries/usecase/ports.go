package usecase

import (
	"context"

	collectionentity "journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/entries/domain/entity"
)

// EntryRepository abstracts entry persistence.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type EntryRepository interface {
	// Create stores e and its memberships, and sets e.ID.
	Create(ctx context.Context, e *entity.Entry) error

	// FindByID loads an entry with its collection IDs. Returns ErrEntryNotFound if absent.
	FindByID(ctx context.Context, id uint) (*entity.Entry, error)

	// Update saves the editable fields of e. Owner and memberships are untouched.
	Update(ctx context.Context, e *entity.Entry) error

	// Delete removes the entry and its memberships atomically.
	Delete(ctx context.Context, id uint) error

	// ListByOwner returns the owner's entries matching f, newest date first.
	ListByOwner(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error)

	// ListPublic returns every public entry with its author, newest date first.
	ListPublic(ctx context.Context) ([]entity.Entry, error)

	// ReplaceCollections sets the entry's memberships to exactly collectionIDs.
	ReplaceCollections(ctx context.Context, entryID uint, collectionIDs []uint) error
}

// CollectionLister lists the collections an owner may attach entries to.
type CollectionLister interface {
	ListByOwner(ctx context.Context, ownerID uint) ([]collectionentity.Collection, error)
}

// ImageStore persists uploaded images.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
