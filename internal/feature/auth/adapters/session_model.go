package adapters

import (
	"time"

	"journal_backend/internal/feature/auth/domain/entity"
)

// SessionModel はRedisがない構成でセッションを保存する sessions テーブルです。
type SessionModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"index;not null"`
	UserAgent string    `gorm:"size:512"`
	IPAddress string    `gorm:"column:ip_address;size:45"`
	CreatedAt time.Time `gorm:"not null"`
	// 期限切れの一括削除とアクティブ判定で検索する
	ExpiresAt time.Time  `gorm:"index;not null"`
	RevokedAt *time.Time `gorm:"index"`
}

func (SessionModel) TableName() string { return "sessions" }

func (m SessionModel) toEntity() *entity.Session {
	s := entity.Session(m)
	return &s
}

func sessionModelFromEntity(s *entity.Session) *SessionModel {
	m := SessionModel(*s)
	return &m
}
