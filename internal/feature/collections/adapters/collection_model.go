// Package adapters はcollectionsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"time"

	"journal_backend/internal/feature/collections/domain/entity"
)

// CollectionModel はcollectionsテーブルの行です。
// (user_id, name) の組は一意です。
type CollectionModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:80;not null;uniqueIndex:idx_collection_owner_name,priority:2"`
	Detail    string `gorm:"size:400;not null"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_collection_owner_name,priority:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name used by CollectionModel.
func (CollectionModel) TableName() string {
	return "collections"
}

func (m *CollectionModel) toEntity() entity.Collection {
	return entity.Collection{
		ID:        m.ID,
		Name:      m.Name,
		Detail:    m.Detail,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func collectionModelFromEntity(c *entity.Collection) *CollectionModel {
	return &CollectionModel{
		ID:        c.ID,
		Name:      c.Name,
		Detail:    c.Detail,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
