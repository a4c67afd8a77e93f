// Package adapters はentriesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"time"

	"journal_backend/internal/feature/entries/domain/entity"
)

// EntryModel はentriesテーブルの行です。
type EntryModel struct {
	ID         uint      `gorm:"primaryKey"`
	Detail     string    `gorm:"size:800;not null"`
	// SearchText は entity.FoldText 済みの本文です。本文検索はこの列に対して行います。
	SearchText string    `gorm:"column:search_text;type:text;not null;default:''"`
	EntryDate  time.Time `gorm:"column:entry_date;not null;index"`
	EntryType  string    `gorm:"column:entry_type;size:10;not null;index"`
	ImageKey   string    `gorm:"size:255"`
	UserID     uint      `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the table name used by EntryModel.
func (EntryModel) TableName() string {
	return "entries"
}

// EntryCollectionModel はエントリーとコレクションの所属関係です。
type EntryCollectionModel struct {
	EntryID      uint `gorm:"primaryKey;autoIncrement:false"`
	CollectionID uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName overrides the table name used by EntryCollectionModel.
func (EntryCollectionModel) TableName() string {
	return "entry_collections"
}

func (m *EntryModel) toEntity() entity.Entry {
	return entity.Entry{
		ID:        m.ID,
		Detail:    m.Detail,
		Date:      m.EntryDate,
		Type:      entity.EntryType(m.EntryType),
		ImageKey:  m.ImageKey,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func entryModelFromEntity(e *entity.Entry) *EntryModel {
	return &EntryModel{
		ID:         e.ID,
		Detail:     e.Detail,
		SearchText: entity.FoldText(e.Detail),
		EntryDate:  e.Date,
		EntryType:  string(e.Type),
		ImageKey:   e.ImageKey,
		UserID:     e.UserID,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func memberships(entryID uint, collectionIDs []uint) []EntryCollectionModel {
	rows := make([]EntryCollectionModel, 0, len(collectionIDs))
	for _, id := range collectionIDs {
		rows = append(rows, EntryCollectionModel{EntryID: entryID, CollectionID: id})
	}
	return rows
}
