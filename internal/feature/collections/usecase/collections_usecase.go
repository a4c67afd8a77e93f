package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/shared/validation"
)

const (
	MaxNameLength   = 80
	MaxDetailLength = 400
)

// CollectionRepository abstracts collection persistence.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CollectionRepository interface {
	// Create stores c and sets c.ID. Returns ErrNameTaken on a name collision.
	Create(ctx context.Context, c *entity.Collection) error

	// FindByID returns ErrCollectionNotFound if absent.
	FindByID(ctx context.Context, id uint) (*entity.Collection, error)

	// Update saves name and detail. Returns ErrNameTaken on a name collision.
	Update(ctx context.Context, c *entity.Collection) error

	// Delete removes the collection and its memberships atomically.
	Delete(ctx context.Context, id uint) error

	// ListByOwner returns the owner's collections ordered by name.
	ListByOwner(ctx context.Context, ownerID uint) ([]entity.Collection, error)

	// NamesByOwner returns the owner's collection names. Never nil.
	NamesByOwner(ctx context.Context, ownerID uint) ([]string, error)
}

// CollectionInput carries the editable fields of a collection.
type CollectionInput struct {
	Name   string
	Detail string
}

type collectionsUsecase struct {
	repo CollectionRepository
}

// NewCollectionsUsecase creates the collections business logic.
func NewCollectionsUsecase(repo CollectionRepository) *collectionsUsecase {
	return &collectionsUsecase{repo: repo}
}

// List returns the owner's collections ordered by name.
func (u *collectionsUsecase) List(ctx context.Context, ownerID uint) ([]entity.Collection, error) {
	return u.repo.ListByOwner(ctx, ownerID)
}

// Get returns a collection owned by ownerID.
func (u *collectionsUsecase) Get(ctx context.Context, ownerID, id uint) (*entity.Collection, error) {
	return u.authorize(ctx, ownerID, id)
}

// Create stores a new collection if its name is free within the owner's collections.
func (u *collectionsUsecase) Create(ctx context.Context, ownerID uint, in CollectionInput) (*entity.Collection, error) {
	names, err := u.repo.NamesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection names: %w", err)
	}
	if err := validate(in, names); err != nil {
		return nil, err
	}

	c := &entity.Collection{Name: in.Name, Detail: in.Detail, UserID: ownerID}
	if err := u.repo.Create(ctx, c); err != nil {
		return nil, translateNameTaken(err)
	}
	return c, nil
}

// Update renames or re-describes a collection. Keeping the current name is
// always allowed; only the owner's other names conflict.
func (u *collectionsUsecase) Update(ctx context.Context, ownerID, id uint, in CollectionInput) (*entity.Collection, error) {
	c, err := u.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	names, err := u.repo.NamesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection names: %w", err)
	}
	if err := validate(in, withoutOne(names, c.Name)); err != nil {
		return nil, err
	}

	c.Name = in.Name
	c.Detail = in.Detail
	if err := u.repo.Update(ctx, c); err != nil {
		return nil, translateNameTaken(err)
	}
	return c, nil
}

// Delete removes a collection owned by ownerID. Its entries are kept.
func (u *collectionsUsecase) Delete(ctx context.Context, ownerID, id uint) error {
	if _, err := u.authorize(ctx, ownerID, id); err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (u *collectionsUsecase) authorize(ctx context.Context, ownerID, id uint) (*entity.Collection, error) {
	c, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != ownerID {
		return nil, ErrForbidden
	}
	return c, nil
}

func validate(in CollectionInput, scope []string) error {
	var errs validation.Errors
	if err := errs.Collect(validation.Text("name", in.Name, MaxNameLength, true)); err != nil {
		return err
	}
	if err := errs.Collect(validation.Text("detail", in.Detail, MaxDetailLength, true)); err != nil {
		return err
	}
	if err := errs.Collect(validation.UniqueWithinScope("name", in.Name, scope)); err != nil {
		return err
	}
	return errs.Err()
}

// withoutOne returns names with a single occurrence of name removed.
func withoutOne(names []string, name string) []string {
	out := slices.Clone(names)
	if i := slices.Index(out, name); i >= 0 {
		out = slices.Delete(out, i, i+1)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// translateNameTaken reports a storage-level name collision, caused by a
// concurrent request, as the field error the pre-check would have given.
func translateNameTaken(err error) error {
	if errors.Is(err, ErrNameTaken) {
		return validation.Errors{validation.ScopeConflict("name")}
	}
	return fmt.Errorf("failed to save collection: %w", err)
}
