package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/collections/usecase"
	"journal_backend/internal/platform/db"
)

// membershipTable はentriesフィーチャーが所有するエントリーとコレクションの中間テーブルです。
const membershipTable = "entry_collections"

type collectionGorm struct {
	db *gorm.DB
}

var _ usecase.CollectionRepository = (*collectionGorm)(nil)

// NewCollectionGorm はgorm.DBを使うCollectionRepositoryを生成します。
func NewCollectionGorm(db *gorm.DB) *collectionGorm {
	return &collectionGorm{db: db}
}

// Create はコレクションを保存し、採番されたIDをcに設定します。
func (r *collectionGorm) Create(ctx context.Context, c *entity.Collection) error {
	if c == nil {
		return errors.New("collection is nil")
	}
	m := collectionModelFromEntity(c)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translate(err)
	}
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	c.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByID はIDでコレクションを取得します。
func (r *collectionGorm) FindByID(ctx context.Context, id uint) (*entity.Collection, error) {
	var m CollectionModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	c := m.toEntity()
	return &c, nil
}

// Update は名前と説明を更新します。
func (r *collectionGorm) Update(ctx context.Context, c *entity.Collection) error {
	if c == nil {
		return errors.New("collection is nil")
	}
	res := r.db.WithContext(ctx).
		Model(&CollectionModel{ID: c.ID}).
		Updates(map[string]any{"name": c.Name, "detail": c.Detail})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrCollectionNotFound
	}
	return nil
}

// Delete はコレクションとその所属関係を1トランザクションで削除します。
// エントリー自体は削除されません。
func (r *collectionGorm) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+membershipTable+" WHERE collection_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&CollectionModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrCollectionNotFound
		}
		return nil
	})
}

// ListByOwner は所有者のコレクションを名前順で返します。
func (r *collectionGorm) ListByOwner(ctx context.Context, ownerID uint) ([]entity.Collection, error) {
	var models []CollectionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("name ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Collection, 0, len(models))
	for i := range models {
		out = append(out, models[i].toEntity())
	}
	return out, nil
}

// NamesByOwner は所有者が使用中のコレクション名を返します。
func (r *collectionGorm) NamesByOwner(ctx context.Context, ownerID uint) ([]string, error) {
	names := make([]string, 0)
	if err := r.db.WithContext(ctx).
		Model(&CollectionModel{}).
		Where("user_id = ?", ownerID).
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return usecase.ErrCollectionNotFound
	case db.IsDuplicateKey(err):
		return usecase.ErrNameTaken
	default:
		return err
	}
}
