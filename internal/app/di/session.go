package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authadapters "journal_backend/internal/feature/auth/adapters"
	"journal_backend/internal/feature/auth/usecase"
	"journal_backend/internal/platform/session"
)

// NewSessionRepository はSessionRepositoryの実装を生成します。
// Redisが利用可能な場合はRedis実装を返し、そうでなければDB実装にフォールバックします。
func NewSessionRepository(rdb *redis.Client, db *gorm.DB) usecase.SessionRepository {
	if rdb != nil {
		return session.NewSessionRedis(rdb, "session")
	}
	return authadapters.NewSessionGorm(db)
}
