// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 3 * time.Second
	scanBatch      = 100
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds every individual store call.
	Timeout time.Duration
}

// RedisStore implements Store on top of a Redis server.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a RedisStore. It does not contact the server; call Ping.
func NewRedisStore(opts RedisOptions) *RedisStore {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	return &RedisStore{client: client, timeout: opts.Timeout}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// unavailable classifies every error other than redis.Nil as a connectivity failure.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrNil
	}
	if isWrongType(err) {
		return fmt.Errorf("%s: %w", op, ErrWrongType)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func isWrongType(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "WRONGTYPE")
	}
	return false
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("hgetall", err)
	}
	return values, nil
}

func (s *RedisStore) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	args := make([]interface{}, 0, len(values)*2)
	for field, value := range values {
		args = append(args, field, value)
	}
	return unavailable("hset", s.client.HSet(ctx, key, args...).Err())
}

func (s *RedisStore) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.client.HIncrBy(ctx, key, field, incr).Result()
	if err != nil {
		return 0, unavailable("hincrby", err)
	}
	return n, nil
}

func (s *RedisStore) SAdd(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, unavailable("sadd", err)
	}
	return n == 1, nil
}

func (s *RedisStore) SRem(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.client.SRem(ctx, key, member).Result()
	if err != nil {
		return false, unavailable("srem", err)
	}
	return n == 1, nil
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, unavailable("sismember", err)
	}
	return ok, nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable("smembers", err)
	}
	return members, nil
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable("scard", err)
	}
	return n, nil
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("zadd", s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, unavailable("zrangebyscore", err)
	}
	return members, nil
}

func formatScore(score float64) string {
	switch {
	case math.IsInf(score, -1):
		return "-inf"
	case math.IsInf(score, 1):
		return "+inf"
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func (s *RedisStore) ZRem(ctx context.Context, key, member string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("zrem", s.client.ZRem(ctx, key, member).Err())
}

func (s *RedisStore) LPush(ctx context.Context, key, value string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("lpush", s.client.LPush(ctx, key, value).Err())
}

func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable("lrange", err)
	}
	return values, nil
}

func (s *RedisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("ltrim", s.client.LTrim(ctx, key, start, stop).Err())
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", unavailable("get", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("set", s.client.Set(ctx, key, value, ttl).Err())
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, unavailable("setnx", err)
	}
	return ok, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("del", s.client.Del(ctx, keys...).Err())
}

// Keys walks the keyspace with SCAN so large databases are never blocked by KEYS.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("scan", err)
	}
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return unavailable("ping", s.client.Ping(ctx).Err())
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
