package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/repositories"
)

func newRedisRepo(t *testing.T) (*repositories.RateLimitRedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repositories.NewRateLimitRedisRepository(client), mr
}

func TestRedisRepository_IncrementWithinWindow(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)
	t0 := time.Now().Truncate(time.Millisecond)

	rec, err := repo.Get(ctx, "ratelimit:client:a")
	require.NoError(t, err)
	require.Nil(t, rec)

	for i := 0; i < 3; i++ {
		ok, err := repo.ConditionalIncrement(ctx, "ratelimit:client:a", t0.Add(time.Duration(i)*time.Minute), time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
	}

	rec, err = repo.Get(ctx, "ratelimit:client:a")
	require.NoError(t, err)
	require.Equal(t, 3, rec.Count)
	require.True(t, rec.WindowStart.Equal(t0))
	require.True(t, rec.ExpiresAt.Equal(t0.Add(2*time.Minute).Add(2*time.Hour)))
	require.Equal(t, 2*time.Hour, mr.TTL("ratelimit:client:a"))
}

func TestRedisRepository_StaleWindowIsNotIncremented(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t)
	t0 := time.Now().Truncate(time.Millisecond)

	ok, err := repo.ConditionalIncrement(ctx, "k", t0, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ConditionalIncrement(ctx, "k", t0.Add(time.Hour), time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	rec, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, rec.Count)
}

func TestRedisRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)
	t0 := time.Now().Truncate(time.Millisecond)

	for i := 0; i < 4; i++ {
		_, err := repo.ConditionalIncrement(ctx, "k", t0, time.Minute)
		require.NoError(t, err)
	}
	later := t0.Add(2 * time.Minute)
	require.NoError(t, repo.Reset(ctx, "k", later, time.Minute))

	rec, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, rec.Count)
	require.True(t, rec.WindowStart.Equal(later))
	require.True(t, rec.ExpiresAt.Equal(later.Add(2*time.Minute)))
	require.Equal(t, 2*time.Minute, mr.TTL("k"))
}

func TestRedisRepository_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	repo := repositories.NewRateLimitRedisRepository(client)

	_, err := repo.Get(ctx, "k")
	require.Error(t, err)
	_, err = repo.ConditionalIncrement(ctx, "k", time.Now(), time.Hour)
	require.Error(t, err)
}

func TestRedisRepository_CorruptRecordIsAnError(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	mr.HSet("bad-count", "window_start", "1740873600000", "count", "many")
	_, err := repo.Get(ctx, "bad-count")
	require.ErrorContains(t, err, "count")

	mr.HSet("bad-expiry", "window_start", "1740873600000", "count", "2", "expires_at", "soon")
	_, err = repo.Get(ctx, "bad-expiry")
	require.ErrorContains(t, err, "expires_at")
}
