package usecase

import (
	"context"

	"journal_backend/internal/feature/auth/domain/entity"
)

// SessionRepository はログインセッションの保存先です（Redis または DB）。
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error

	// FindByID は見つからない場合 ErrSessionNotFound を返します。
	FindByID(ctx context.Context, id string) (*entity.Session, error)

	// Revoke はログアウト時にセッションを失効させます。
	Revoke(ctx context.Context, id string) error

	// DeleteExpired は期限切れのセッションを削除し、削除件数を返します。
	DeleteExpired(ctx context.Context) (int64, error)

	// CountByUserID と DeleteOldestByUserID は同時ログイン数の上限に使います。
	// どちらも期限切れ・失効済みのセッションは数えません。
	CountByUserID(ctx context.Context, userID uint) (int64, error)
	DeleteOldestByUserID(ctx context.Context, userID uint) error
}
