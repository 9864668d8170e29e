// Package store wraps the coordination store (a Redis-compatible
// key/value + sorted-set service) behind the small capability
// interface the routing state manager and reclamation workers need.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a string key has no value, mirroring
// redis.Nil without leaking the driver's error type to callers.
var ErrNotFound = errors.New("store: key not found")

// ScoredMember is one member of a sorted set, paired with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// Store is the capability interface the router depends on. It exposes
// exactly the primitives the routing state manager and reclaimers use
// — set-with-expiry, get, a pipelined set+zadd, zrem,
// zcount-by-score-range, zremrangebyscore-by-score-range, and ping —
// so production code runs against Redis while tests run against an
// in-process fake.
type Store interface {
	// Get returns the string value of key, or ErrNotFound if absent.
	Get(ctx context.Context, key string) (string, error)
	// SetEX sets key to value with the given expiry.
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	// RecordActive atomically sets key to value with expiry ttl and
	// adds member to the sorted set setKey with the given score.
	RecordActive(ctx context.Context, key, value string, ttl time.Duration, setKey, member string, score float64) error
	// ZRem removes member from the sorted set setKey.
	ZRem(ctx context.Context, setKey, member string) error
	// ZCount counts members of setKey whose score lies in [min, max].
	ZCount(ctx context.Context, setKey string, min, max float64) (int64, error)
	// ZRemRangeByScore removes, pipelined across a batch, members of
	// setKey whose score lies in [min, max], returning the number
	// removed.
	ZRemRangeByScore(ctx context.Context, setKey string, min, max float64) (int64, error)
	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error
	// Close releases the underlying connection(s).
	Close() error
}
