// Package session はログインセッションをRedisに保存します。
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"journal_backend/internal/feature/auth/domain/entity"
	"journal_backend/internal/feature/auth/usecase"
)

// ハッシュのフィールド名
const (
	fieldUserID    = "user_id"
	fieldUserAgent = "user_agent"
	fieldIPAddress = "ip"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldRevokedAt = "revoked_at"
)

// SessionRedis は usecase.SessionRepository のRedis実装です。
//
// セッションは "<prefix>:<id>" のハッシュで、TTLは残り有効期間です。
// ユーザーごとの "<prefix>:user:<id>" ソート済みセットがログイン時刻順にIDを索引します。
type SessionRedis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ usecase.SessionRepository = (*SessionRedis)(nil)

// NewSessionRedis は prefix が空なら "session" を使います。
func NewSessionRedis(client *redis.Client, prefix string) *SessionRedis {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionRedis{client: client, prefix: prefix, now: time.Now}
}

func (r *SessionRedis) key(id string) string {
	return r.prefix + ":" + id
}

func (r *SessionRedis) indexKey(userID uint) string {
	return r.prefix + ":user:" + strconv.FormatUint(uint64(userID), 10)
}

// Create はセッションを保存し、ユーザーの索引に追加します。
func (r *SessionRedis) Create(ctx context.Context, s *entity.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(s.ID), map[string]any{
		fieldUserID:    strconv.FormatUint(uint64(s.UserID), 10),
		fieldUserAgent: s.UserAgent,
		fieldIPAddress: s.IPAddress,
		fieldCreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, r.key(s.ID), ttl)
	pipe.ZAdd(ctx, r.indexKey(s.UserID), redis.Z{Score: float64(s.CreatedAt.UnixNano()), Member: s.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// FindByID は存在しないか期限切れで消えたセッションに ErrSessionNotFound を返します。
func (r *SessionRedis) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, usecase.ErrSessionNotFound
	}
	s, err := decodeSession(id, fields)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func decodeSession(id string, f map[string]string) (*entity.Session, error) {
	userID, err := strconv.ParseUint(f[fieldUserID], 10, 64)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, f[fieldCreatedAt])
	if err != nil {
		return nil, err
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, f[fieldExpiresAt])
	if err != nil {
		return nil, err
	}
	s := &entity.Session{
		ID:        id,
		UserID:    uint(userID),
		UserAgent: f[fieldUserAgent],
		IPAddress: f[fieldIPAddress],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	if v, ok := f[fieldRevokedAt]; ok {
		revokedAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}
		s.RevokedAt = &revokedAt
	}
	return s, nil
}

// Revoke は revoked_at を記録して索引から外します。
// HSET はTTLを変えないため、失効済みのCookieは期限まで失効として判定されます。
func (r *SessionRedis) Revoke(ctx context.Context, id string) error {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(id), fieldRevokedAt, r.now().UTC().Format(time.RFC3339Nano))
	pipe.ZRem(ctx, r.indexKey(s.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteExpired は何もしません。期限切れのキーはRedisのTTLで消えます。
func (r *SessionRedis) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// activeIDs はログイン時刻の古い順に有効なセッションIDを返します。
// キーが既に消えたIDは索引から取り除きます。
func (r *SessionRedis) activeIDs(ctx context.Context, userID uint) ([]string, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	now := r.now()
	var active []string
	var stale []any
	for _, id := range ids {
		s, err := r.FindByID(ctx, id)
		switch {
		case errors.Is(err, usecase.ErrSessionNotFound):
			stale = append(stale, id)
		case err != nil:
			return nil, err
		case s.IsActive(now):
			active = append(active, id)
		}
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(userID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune session index: %w", err)
		}
	}
	return active, nil
}

// CountByUserID はユーザーの有効なセッション数を返します。
func (r *SessionRedis) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	ids, err := r.activeIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// DeleteOldestByUserID は最も古い有効なセッションを削除します。
func (r *SessionRedis) DeleteOldestByUserID(ctx context.Context, userID uint) error {
	ids, err := r.activeIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(ids[0]))
	pipe.ZRem(ctx, r.indexKey(userID), ids[0])
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	return nil
}
