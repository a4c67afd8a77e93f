// Package config loads the application configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"journal_backend/internal/platform/db"
	"journal_backend/internal/platform/redis"
	"journal_backend/internal/platform/storage"
)

// Config is the full application configuration.
type Config struct {
	Port      string `env:"PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	JWTSecret    string        `env:"JWT_SECRET"`
	SessionTTL   time.Duration `env:"SESSION_TTL,default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,default=false"`

	FeedCacheTTL time.Duration `env:"FEED_CACHE_TTL,default=1m"`

	// AuthRatePerMinute limits POST /login and /register per client IP.
	AuthRatePerMinute int `env:"AUTH_RATE_PER_MINUTE,default=20"`

	DB      db.Config
	Redis   redis.Config
	Storage storage.Config
}

// Load reads the given .env files (".env" when none are given), then decodes the
// environment into a Config. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		// 開発用: 再起動でセッションは無効になる
		slog.Warn("JWT_SECRET is not set, using a random secret. Set a strong secret in production.")
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Storage.Driver {
	case storage.DriverLocal, storage.DriverS3:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.Driver == storage.DriverS3 && c.Storage.S3.Bucket == "" {
		return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
