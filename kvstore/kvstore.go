// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNil is returned by Get when the key does not exist.
	ErrNil = errors.New("kvstore: nil")
	// ErrUnavailable wraps every failure to reach the backing store.
	ErrUnavailable = errors.New("kvstore: store unavailable")
	// ErrWrongType is returned when a key holds a value of another kind.
	ErrWrongType = errors.New("kvstore: operation against a key holding the wrong kind of value")
)

// Store is the subset of a Redis-like key-value store the application relies on.
// Every method is a single-key atomic operation except Del and Keys.
type Store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)

	// SAdd reports whether member was newly added.
	SAdd(ctx context.Context, key, member string) (bool, error)
	// SRem reports whether member was present and removed.
	SRem(ctx context.Context, key, member string) (bool, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRangeByScore returns members with min <= score <= max, lowest score first.
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRem(ctx context.Context, key, member string) error

	LPush(ctx context.Context, key, value string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// Keys returns every key matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
