package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal_backend/internal/feature/auth/domain/entity"
	"journal_backend/internal/feature/auth/usecase"
)

// setupTestRedis はテスト用のminiredisを起動します。
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

// createTestSession はテスト用のセッションを生成します。
func createTestSession(id string, userID uint, createdAt time.Time, expiresIn time.Duration) *entity.Session {
	return &entity.Session{
		ID:        id,
		UserID:    userID,
		UserAgent: "test-agent",
		IPAddress: "127.0.0.1",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(expiresIn),
	}
}

func TestNewSessionRedis(t *testing.T) {
	client, _ := setupTestRedis(t)

	assert.Equal(t, "session", NewSessionRedis(client, "").prefix)
	assert.Equal(t, "custom", NewSessionRedis(client, "custom").prefix)
}

func TestSessionRedis_CreateAndFind(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, createTestSession("abc", 1, now, time.Hour)))

	assert.True(t, mr.Exists("session:abc"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:abc").Seconds(), 2)
	members, err := mr.ZMembers("session:user:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, members)
	assert.Equal(t, "1", mr.HGet("session:abc", "user_id"))

	found, err := repo.FindByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, uint(1), found.UserID)
	assert.Equal(t, "test-agent", found.UserAgent)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
}

func TestSessionRedis_CreateExpired(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")

	err := repo.Create(context.Background(), createTestSession("old", 1, time.Now().Add(-2*time.Hour), time.Hour))
	assert.Error(t, err)
}

func TestSessionRedis_FindByID_Corrupted(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	mr.HSet("session:bad", "user_id", "not-a-number")

	_, err := repo.FindByID(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrSessionNotFound)
}

func TestSessionRedis_Revoke(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, createTestSession("abc", 1, time.Now(), time.Hour)))

	require.NoError(t, repo.Revoke(ctx, "abc"))

	found, err := repo.FindByID(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found.IsRevoked())
	assert.NotEmpty(t, mr.HGet("session:abc", "revoked_at"))
	assert.Greater(t, mr.TTL("session:abc"), time.Duration(0), "revoked session keeps its TTL")

	count, err := repo.CountByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Revoke(ctx, "missing"), usecase.ErrSessionNotFound)
}

func TestSessionRedis_CountAndDeleteOldest(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, createTestSession("newest", 1, now, time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("oldest", 1, now.Add(-2*time.Minute), time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("middle", 1, now.Add(-time.Minute), time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("other", 2, now.Add(-time.Hour), 2*time.Hour)))

	count, err := repo.CountByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, repo.DeleteOldestByUserID(ctx, 1))

	assert.False(t, mr.Exists("session:oldest"))
	assert.True(t, mr.Exists("session:middle"))
	members, err := mr.ZMembers("session:user:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"middle", "newest"}, members)
	count, err = repo.CountByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.NoError(t, repo.DeleteOldestByUserID(ctx, 99))
}

func TestSessionRedis_ExpiredKeysLeaveTheIndex(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, createTestSession("short", 1, time.Now(), time.Minute)))

	mr.FastForward(2 * time.Minute)

	count, err := repo.CountByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
	members, _ := mr.ZMembers("session:user:1")
	assert.Empty(t, members)

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSessionRedis_RoundTripsTimes(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 123, time.UTC)
	repo.now = func() time.Time { return created }

	require.NoError(t, repo.Create(ctx, createTestSession("t", 3, created, time.Hour)))

	found, err := repo.FindByID(ctx, "t")
	require.NoError(t, err)
	assert.True(t, found.CreatedAt.Equal(created))
	assert.True(t, found.ExpiresAt.Equal(created.Add(time.Hour)))
	assert.Nil(t, found.RevokedAt)
	assert.Equal(t, "127.0.0.1", found.IPAddress)
}
