// Package di はアプリケーションの依存関係を組み立てます。
package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"journal_backend/internal/app/router"
	authadapters "journal_backend/internal/feature/auth/adapters"
	authentity "journal_backend/internal/feature/auth/domain/entity"
	authhandler "journal_backend/internal/feature/auth/transport/handler"
	authusecase "journal_backend/internal/feature/auth/usecase"
	collectionsadapters "journal_backend/internal/feature/collections/adapters"
	collectionshandler "journal_backend/internal/feature/collections/transport/handler"
	collectionsusecase "journal_backend/internal/feature/collections/usecase"
	entriesadapters "journal_backend/internal/feature/entries/adapters"
	entrieshandler "journal_backend/internal/feature/entries/transport/handler"
	entriesusecase "journal_backend/internal/feature/entries/usecase"
	"journal_backend/internal/platform/cache"
	"journal_backend/internal/platform/config"
	"journal_backend/internal/platform/db"
	platformhandler "journal_backend/internal/platform/http/handler"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/metrics"
	"journal_backend/internal/shared/ratelimiter"
)

// SessionPruner は起動時に期限切れセッションを削除します。
type SessionPruner interface {
	PruneExpiredSessions(ctx context.Context) (int64, error)
}

// App は組み立て済みのアプリケーションです。
type App struct {
	Router   *gin.Engine
	Sessions SessionPruner
}

// Models はマイグレーション対象のモデル一覧です。
func Models() []any {
	return []any{
		&authentity.User{},
		&authadapters.SessionModel{},
		&collectionsadapters.CollectionModel{},
		&entriesadapters.EntryModel{},
		&entriesadapters.EntryCollectionModel{},
	}
}

// NewApp はリポジトリ・ユースケース・ハンドラーを生成してルーターに登録します。
// rdb が nil の場合、セッションはDBに保存され、公開フィードはキャッシュされません。
func NewApp(ctx context.Context, cfg *config.Config, gdb *gorm.DB, rdb *redis.Client, logger *slog.Logger) (*App, error) {
	images, mediaRoot, err := NewImageStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	tokens := jwtmw.NewGenerator(cfg.JWTSecret)
	auth := authusecase.NewAuthUsecase(
		authadapters.NewUserGorm(gdb),
		NewSessionRepository(rdb, gdb),
		tokens,
		cfg.SessionTTL,
	)

	collectionRepo := collectionsadapters.NewCollectionGorm(gdb)
	var entryRepo entriesusecase.EntryRepository = entriesadapters.NewEntryGorm(gdb)
	if rdb != nil {
		entryRepo = cache.NewCachingEntryRepository(rdb, cfg.FeedCacheTTL, entryRepo, "entries")
	}
	entries := entriesusecase.NewEntriesUsecase(entryRepo, collectionRepo, images)
	collections := collectionsusecase.NewCollectionsUsecase(collectionRepo)

	loc := time.Local

	checks := []platformhandler.Check{{
		Name: "database",
		Ping: func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}}
	if rdb != nil {
		checks = append(checks, platformhandler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	r, err := router.NewRouter(router.Deps{
		Auth:        authhandler.NewAuthHandler(auth, authhandler.SessionCookie, cfg.CookieSecure),
		Entries:     entrieshandler.NewEntriesHandler(entries, loc),
		Collections: collectionshandler.NewCollectionsHandler(collections),
		Health:      platformhandler.NewHealthHandler(checks...),
		Metrics:     metrics.New(),
		Tokens:      tokens,
		Sessions:    auth,
		AuthLimiter: ratelimiter.NewRateLimiter(cfg.AuthRatePerMinute),
		Logger:      logger,
		MediaRoot:   mediaRoot,
		MediaURL:    cfg.Storage.MediaURL,
	})
	if err != nil {
		return nil, err
	}
	return &App{Router: r, Sessions: auth}, nil
}
