package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	collectionentity "journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/entries/domain/entity"
	"journal_backend/internal/shared/validation"
)

const (
	// MaxDetailLength is the longest entry text accepted.
	MaxDetailLength = 800

	// MaxImageSize is the largest accepted upload in bytes.
	MaxImageSize = 10 << 20

	imageKeyPrefix = "images/"
)

// ImageUpload is a file submitted with an entry form.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// EntryInput carries the editable fields of an entry. A nil Image keeps the
// current image on update.
type EntryInput struct {
	Detail string
	Date   *time.Time
	Type   entity.EntryType
	Image  *ImageUpload
}

type entriesUsecase struct {
	entries     EntryRepository
	collections CollectionLister
	images      ImageStore
	now         func() time.Time
}

// NewEntriesUsecase creates the entries business logic.
func NewEntriesUsecase(entries EntryRepository, collections CollectionLister, images ImageStore) *entriesUsecase {
	return &entriesUsecase{
		entries:     entries,
		collections: collections,
		images:      images,
		now:         time.Now,
	}
}

// Create validates in and stores a new entry owned by ownerID.
func (u *entriesUsecase) Create(ctx context.Context, ownerID uint, in EntryInput) (*entity.Entry, error) {
	img, err := u.validate(in)
	if err != nil {
		return nil, err
	}

	e := &entity.Entry{
		Detail: in.Detail,
		Date:   *in.Date,
		Type:   in.Type,
		UserID: ownerID,
	}
	if img != nil {
		if err := u.saveImage(ctx, img); err != nil {
			return nil, err
		}
		e.ImageKey = img.key
	}

	if err := u.entries.Create(ctx, e); err != nil {
		u.deleteImage(ctx, e.ImageKey)
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return e, nil
}

// Get returns an entry owned by ownerID.
func (u *entriesUsecase) Get(ctx context.Context, ownerID, id uint) (*entity.Entry, error) {
	return u.authorize(ctx, ownerID, id)
}

// Update checks ownership before validating in, then saves the entry. A new
// image replaces the stored one.
func (u *entriesUsecase) Update(ctx context.Context, ownerID, id uint, in EntryInput) (*entity.Entry, error) {
	e, err := u.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	img, err := u.validate(in)
	if err != nil {
		return nil, err
	}

	oldKey := e.ImageKey
	e.Detail = in.Detail
	e.Date = *in.Date
	e.Type = in.Type
	if img != nil {
		if err := u.saveImage(ctx, img); err != nil {
			return nil, err
		}
		e.ImageKey = img.key
	}

	if err := u.entries.Update(ctx, e); err != nil {
		if img != nil {
			u.deleteImage(ctx, img.key)
		}
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if img != nil {
		u.deleteImage(ctx, oldKey)
	}
	return e, nil
}

// Delete removes an entry owned by ownerID together with its image.
func (u *entriesUsecase) Delete(ctx context.Context, ownerID, id uint) error {
	e, err := u.authorize(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := u.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	u.deleteImage(ctx, e.ImageKey)
	return nil
}

// ListOwn returns the owner's entries matching f.
func (u *entriesUsecase) ListOwn(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error) {
	return u.entries.ListByOwner(ctx, ownerID, f)
}

// ListPublic returns all public entries, newest first.
func (u *entriesUsecase) ListPublic(ctx context.Context) ([]entity.Entry, error) {
	return u.entries.ListPublic(ctx)
}

// CollectionChoices returns the collections the owner can pick from. An
// anonymous caller gets an empty list.
func (u *entriesUsecase) CollectionChoices(ctx context.Context, owner *uint) ([]collectionentity.Collection, error) {
	if owner == nil {
		return []collectionentity.Collection{}, nil
	}
	return u.collections.ListByOwner(ctx, *owner)
}

// SetCollections replaces the entry's memberships with ids. IDs that are not
// collections of ownerID are dropped; repeating the call is harmless.
func (u *entriesUsecase) SetCollections(ctx context.Context, ownerID, entryID uint, ids []uint) error {
	if _, err := u.authorize(ctx, ownerID, entryID); err != nil {
		return err
	}
	owned, err := u.collections.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	allowed := make(map[uint]struct{}, len(owned))
	for _, c := range owned {
		allowed[c.ID] = struct{}{}
	}
	keep := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := allowed[id]; ok {
			keep = append(keep, id)
		}
	}
	slices.Sort(keep)
	keep = slices.Compact(keep)

	if err := u.entries.ReplaceCollections(ctx, entryID, keep); err != nil {
		return fmt.Errorf("failed to set collections: %w", err)
	}
	return nil
}

// ImageURL returns the public URL of a stored image, or "" when there is none.
func (u *entriesUsecase) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return u.images.URL(key)
}

// authorize loads the entry and checks that ownerID owns it.
func (u *entriesUsecase) authorize(ctx context.Context, ownerID, id uint) (*entity.Entry, error) {
	e, err := u.entries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != ownerID {
		return nil, ErrForbidden
	}
	return e, nil
}

// checkedImage is an upload that passed validation.
type checkedImage struct {
	key         string
	contentType string
	data        []byte
}

// validate collects every field failure of in.
func (u *entriesUsecase) validate(in EntryInput) (*checkedImage, error) {
	var errs validation.Errors

	if err := errs.Collect(validation.Text("detail", in.Detail, MaxDetailLength, true)); err != nil {
		return nil, err
	}
	if err := errs.Collect(validation.NotFutureDate(in.Date, u.now())); err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		errs.Add("type", "Select a valid choice.", validation.ErrInvalidFormat)
	}

	var img *checkedImage
	if in.Image != nil {
		var fe *validation.FieldError
		img, fe = checkImage(in.Image)
		if fe != nil {
			errs = append(errs, fe)
		}
	}

	if errs.HasErrors() {
		return nil, errs.Err()
	}
	return img, nil
}

func checkImage(up *ImageUpload) (*checkedImage, *validation.FieldError) {
	invalid := func(msg string) *validation.FieldError {
		return &validation.FieldError{Field: "image", Message: msg, Err: validation.ErrInvalidFormat}
	}
	if len(up.Data) == 0 {
		return nil, invalid("The submitted file is empty.")
	}
	if len(up.Data) > MaxImageSize {
		return nil, invalid("The image must be at most 10 MB.")
	}
	mt := mimetype.Detect(up.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, invalid("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return &checkedImage{
		key:         imageKeyPrefix + uuid.NewString() + mt.Extension(),
		contentType: mt.String(),
		data:        up.Data,
	}, nil
}

func (u *entriesUsecase) saveImage(ctx context.Context, img *checkedImage) error {
	if err := u.images.Save(ctx, img.key, img.data, img.contentType); err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}
	return nil
}

// deleteImage removes a stored image. Failures only leave an orphan file and are logged.
func (u *entriesUsecase) deleteImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.images.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete image", "key", key, "error", err)
	}
}
