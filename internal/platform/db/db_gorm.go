// Package db はデータベース接続とマイグレーションを提供します。
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// pgUniqueViolation はPostgreSQLの一意制約違反コードです。
	pgUniqueViolation = "23505"
)

// retryInterval は接続リトライの待機間隔です。テストから短縮できるよう変数にしています。
var retryInterval = 3 * time.Second

// Config はデータベース接続設定を保持します。
type Config struct {
	Driver         string        `env:"DB_DRIVER,default=sqlite"`
	Path           string        `env:"DB_PATH,default=journal.db"`
	Host           string        `env:"DB_HOST,default=localhost"`
	Port           string        `env:"DB_PORT,default=5432"`
	User           string        `env:"DB_USER"`
	Password       string        `env:"DB_PASSWORD"`
	Name           string        `env:"DB_NAME,default=journal"`
	SSLMode        string        `env:"DB_SSLMODE,default=disable"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT,default=60s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS,default=true"`
}

// Opener は DSN から gorm.DB を開く関数です。
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN は設定からドライバに応じた接続文字列を生成します。
// sqlite ではファイルパスをそのまま返します。
func BuildDSN(cfg Config) string {
	if cfg.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
	}
	return cfg.Path
}

// ConnectWithRetry は timeout に達するまで opener を繰り返し呼び出します。
// コンテナ起動直後のDBを待つためのものです。
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// NewOpener はドライバ名に対応する Opener を返します。
// 一意制約違反を gorm.ErrDuplicatedKey として受け取れるよう TranslateError を有効にします。
func NewOpener(driver string) (Opener, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	switch driver {
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), gormCfg)
		}, nil
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gormCfg)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Open は設定に従ってDBへ接続し、必要ならマイグレーションを実行します。
func Open(cfg Config, models ...any) (*gorm.DB, error) {
	opener, err := NewOpener(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(BuildDSN(cfg), cfg.ConnectTimeout, opener)
	if err != nil {
		return nil, err
	}
	slog.Info("db connection successful", "driver", cfg.Driver)

	if cfg.RunMigrations {
		if err := Migrate(db, models...); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate は与えられたモデルのスキーマを作成・更新します。
func Migrate(db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return nil
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Ping はヘルスチェック用にDB接続を確認します。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsDuplicateKey は err が一意制約違反かどうかを判定します。
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
