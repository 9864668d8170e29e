package reclaim

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"sessionrouter/internal/store"
)

func newTestStore(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewFromClient(client), mr
}

func TestSweepStaleMappings_RemovesOnlyExpired(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ttl := time.Minute

	now := time.Now().UnixMilli()
	old := now - ttl.Milliseconds() - 5000

	require.NoError(t, s.RecordActive(ctx, "client:fresh", "10.0.0.1", ttl, "backend:10.0.0.1", "fresh", float64(now)))
	require.NoError(t, s.RecordActive(ctx, "client:stale", "10.0.0.1", ttl, "backend:10.0.0.1", "stale", float64(old)))

	w := New(s, []string{"10.0.0.1"}, ttl, nil)
	w.sweepStaleMappings(ctx)

	count, err := s.ZCount(ctx, "backend:10.0.0.1", 0, float64(now+1000))
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "only the stale entry should have been evicted")
}

func TestSweepExpiredTokens_NoopWhenEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	w := New(s, nil, time.Minute, nil)
	w.sweepExpiredTokens(context.Background())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, _ := newTestStore(t)
	w := New(s, []string{"10.0.0.1"}, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Run(ctx)
	cancel()
	// Give the goroutines a tick to observe cancellation; nothing to
	// assert beyond "this does not deadlock or panic".
	time.Sleep(10 * time.Millisecond)
}
