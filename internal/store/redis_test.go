package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestStore spins up an in-process miniredis server and wraps it
// with the real go-redis client, exercising the actual command shapes
// (TxPipeline, ZAdd, ZCount, ZRemRangeByScore) instead of a hand-rolled
// fake of the Store interface.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &RedisStore{client: client}
}

func TestRedisStore_GetSetEX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "client:missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetEX(ctx, "client:abc", "10.0.0.1", time.Minute))
	v, err := s.Get(ctx, "client:abc")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", v)
}

func TestRedisStore_RecordActiveAndZCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := float64(time.Now().UnixMilli())

	require.NoError(t, s.RecordActive(ctx, "client:c1", "10.0.0.1", time.Minute, "backend:10.0.0.1", "c1", now))

	v, err := s.Get(ctx, "client:c1")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", v)

	count, err := s.ZCount(ctx, "backend:10.0.0.1", now-1000, now+1000)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRedisStore_ZRemAndZRemRangeByScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordActive(ctx, "client:c1", "b", time.Minute, "backend:b", "c1", 100))
	require.NoError(t, s.RecordActive(ctx, "client:c2", "b", time.Minute, "backend:b", "c2", 500))

	require.NoError(t, s.ZRem(ctx, "backend:b", "c1"))
	count, err := s.ZCount(ctx, "backend:b", 0, 1000)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	removed, err := s.ZRemRangeByScore(ctx, "backend:b", 0, 1000)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestRedisStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
