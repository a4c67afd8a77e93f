package adapters

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"journal_backend/internal/feature/entries/domain/entity"
	"journal_backend/internal/feature/entries/usecase"
)

type entryGorm struct {
	db *gorm.DB
}

var _ usecase.EntryRepository = (*entryGorm)(nil)

// NewEntryGorm はgorm.DBを使うEntryRepositoryを生成します。
func NewEntryGorm(db *gorm.DB) *entryGorm {
	return &entryGorm{db: db}
}

// Create はエントリーと所属関係を1トランザクションで保存します。
func (r *entryGorm) Create(ctx context.Context, e *entity.Entry) error {
	if e == nil {
		return errors.New("entry is nil")
	}
	m := entryModelFromEntity(e)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if len(e.CollectionIDs) == 0 {
			return nil
		}
		return tx.Create(memberships(m.ID, e.CollectionIDs)).Error
	})
	if err != nil {
		return err
	}
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByID はエントリーを所属コレクションのIDとともに取得します。
func (r *entryGorm) FindByID(ctx context.Context, id uint) (*entity.Entry, error) {
	var m EntryModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrEntryNotFound
		}
		return nil, err
	}
	e := m.toEntity()
	ids := make([]uint, 0)
	if err := r.db.WithContext(ctx).
		Model(&EntryCollectionModel{}).
		Where("entry_id = ?", id).
		Order("collection_id").
		Pluck("collection_id", &ids).Error; err != nil {
		return nil, err
	}
	e.CollectionIDs = ids
	return &e, nil
}

// Update は本文・日付・種別・画像キーを更新します。所有者と所属関係は変更しません。
func (r *entryGorm) Update(ctx context.Context, e *entity.Entry) error {
	if e == nil {
		return errors.New("entry is nil")
	}
	res := r.db.WithContext(ctx).
		Model(&EntryModel{ID: e.ID}).
		Updates(map[string]any{
			"detail":      e.Detail,
			"search_text": entity.FoldText(e.Detail),
			"entry_date":  e.Date,
			"entry_type":  string(e.Type),
			"image_key":   e.ImageKey,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrEntryNotFound
	}
	return nil
}

// Delete はエントリーと所属関係を1トランザクションで削除します。
func (r *entryGorm) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&EntryCollectionModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&EntryModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrEntryNotFound
		}
		return nil
	})
}

// ListByOwner は所有者のエントリーをフィルタ条件で絞り込み、日付の新しい順で返します。
func (r *entryGorm) ListByOwner(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error) {
	q := r.db.WithContext(ctx).Model(&EntryModel{}).Where("user_id = ?", ownerID)
	if f.CollectionID != nil {
		sub := r.db.Model(&EntryCollectionModel{}).Select("entry_id").Where("collection_id = ?", *f.CollectionID)
		q = q.Where("id IN (?)", sub)
	}
	if f.Type != "" {
		q = q.Where("entry_type = ?", string(f.Type))
	}
	for _, tok := range f.Tokens() {
		q = q.Where(`search_text LIKE ? ESCAPE '\'`, "%"+escapeLike(entity.FoldText(tok))+"%")
	}

	var models []EntryModel
	if err := q.Order("entry_date DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]entity.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, models[i].toEntity())
	}
	if err := r.loadCollections(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// publicRow は公開エントリーと投稿者名の結合結果です。
type publicRow struct {
	EntryModel `gorm:"embedded"`
	Author     string
}

// ListPublic は全ユーザーの公開エントリーを投稿者名付きで日付の新しい順に返します。
func (r *entryGorm) ListPublic(ctx context.Context) ([]entity.Entry, error) {
	var rows []publicRow
	if err := r.db.WithContext(ctx).
		Table("entries").
		Select("entries.*, users.username AS author").
		Joins("JOIN users ON users.id = entries.user_id").
		Where("entries.entry_type = ?", string(entity.TypePublic)).
		Order("entries.entry_date DESC").Order("entries.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]entity.Entry, 0, len(rows))
	for i := range rows {
		e := rows[i].toEntity()
		e.Author = rows[i].Author
		entries = append(entries, e)
	}
	return entries, nil
}

// ReplaceCollections はエントリーの所属関係をcollectionIDsで置き換えます。
func (r *entryGorm) ReplaceCollections(ctx context.Context, entryID uint, collectionIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", entryID).Delete(&EntryCollectionModel{}).Error; err != nil {
			return err
		}
		if len(collectionIDs) == 0 {
			return nil
		}
		return tx.Create(memberships(entryID, collectionIDs)).Error
	})
}

// loadCollections fills CollectionIDs of entries with a single query.
func (r *entryGorm) loadCollections(ctx context.Context, entries []entity.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(entries))
	index := make(map[uint]int, len(entries))
	for i := range entries {
		ids = append(ids, entries[i].ID)
		index[entries[i].ID] = i
		entries[i].CollectionIDs = []uint{}
	}

	var rows []EntryCollectionModel
	if err := r.db.WithContext(ctx).
		Where("entry_id IN ?", ids).
		Order("entry_id").Order("collection_id").
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.EntryID]
		entries[i].CollectionIDs = append(entries[i].CollectionIDs, row.CollectionID)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards in s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
