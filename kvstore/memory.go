// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kvstore

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

type kind int

const (
	kindString kind = iota
	kindHash
	kindSet
	kindZSet
	kindList
)

type entry struct {
	kind      kind
	str       string
	hash      map[string]string
	set       mapset.Set[string]
	zset      map[string]float64
	list      []string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store in process memory with Redis semantics.
// It backs tests and single-instance development servers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// lookup returns the live entry for key, dropping it if expired. Caller holds mu.
func (s *MemoryStore) lookup(key string, want kind) (*entry, error) {
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, nil
	}
	if e.kind != want {
		return nil, ErrWrongType
	}
	return e, nil
}

// create returns the entry for key, creating an empty one of kind want. Caller holds mu.
func (s *MemoryStore) create(key string, want kind) (*entry, error) {
	e, err := s.lookup(key, want)
	if err != nil || e != nil {
		return e, err
	}
	e = &entry{kind: want}
	switch want {
	case kindHash:
		e.hash = make(map[string]string)
	case kindSet:
		e.set = mapset.NewThreadUnsafeSet[string]()
	case kindZSet:
		e.zset = make(map[string]float64)
	}
	s.entries[key] = e
	return e, nil
}

// prune removes a collection that became empty, as Redis does. Caller holds mu.
func (s *MemoryStore) prune(key string, e *entry) {
	empty := false
	switch e.kind {
	case kindHash:
		empty = len(e.hash) == 0
	case kindSet:
		empty = e.set.Cardinality() == 0
	case kindZSet:
		empty = len(e.zset) == 0
	case kindList:
		empty = len(e.list) == 0
	}
	if empty {
		delete(s.entries, key)
	}
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindHash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if e != nil {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.create(key, kindHash)
	if err != nil {
		return err
	}
	for k, v := range values {
		e.hash[k] = v
	}
	return nil
}

func (s *MemoryStore) HIncrBy(_ context.Context, key, field string, incr int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.create(key, kindHash)
	if err != nil {
		return 0, err
	}
	var current int64
	if raw, ok := e.hash[field]; ok {
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, ErrWrongType
		}
	}
	current += incr
	e.hash[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.create(key, kindSet)
	if err != nil {
		return false, err
	}
	return e.set.Add(member), nil
}

func (s *MemoryStore) SRem(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindSet)
	if err != nil || e == nil {
		return false, err
	}
	if !e.set.Contains(member) {
		return false, nil
	}
	e.set.Remove(member)
	s.prune(key, e)
	return true, nil
}

func (s *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindSet)
	if err != nil || e == nil {
		return false, err
	}
	return e.set.Contains(member), nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindSet)
	if err != nil || e == nil {
		return []string{}, err
	}
	return e.set.ToSlice(), nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(e.set.Cardinality()), nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.create(key, kindZSet)
	if err != nil {
		return err
	}
	e.zset[member] = score
	return nil
}

func (s *MemoryStore) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindZSet)
	if err != nil || e == nil {
		return []string{}, err
	}
	members := make([]string, 0, len(e.zset))
	for member, score := range e.zset {
		if score >= min && score <= max {
			members = append(members, member)
		}
	}
	// Redis orders equal scores lexicographically.
	sort.Slice(members, func(i, j int) bool {
		si, sj := e.zset[members[i]], e.zset[members[j]]
		if si != sj {
			return si < sj
		}
		return members[i] < members[j]
	})
	return members, nil
}

func (s *MemoryStore) ZRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindZSet)
	if err != nil || e == nil {
		return err
	}
	delete(e.zset, member)
	s.prune(key, e)
	return nil
}

func (s *MemoryStore) LPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.create(key, kindList)
	if err != nil {
		return err
	}
	e.list = append([]string{value}, e.list...)
	return nil
}

// listBounds converts Redis-style inclusive indexes (negative counts from the end)
// into a half-open slice range.
func listBounds(n int, start, stop int64) (int, int) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if stop >= int64(n) {
		stop = int64(n) - 1
	}
	if start > stop {
		return 0, 0
	}
	return int(start), int(stop) + 1
}

func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindList)
	if err != nil || e == nil {
		return []string{}, err
	}
	lo, hi := listBounds(len(e.list), start, stop)
	out := make([]string, hi-lo)
	copy(out, e.list[lo:hi])
	return out, nil
}

func (s *MemoryStore) LTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindList)
	if err != nil || e == nil {
		return err
	}
	lo, hi := listBounds(len(e.list), start, stop)
	e.list = append([]string(nil), e.list[lo:hi]...)
	s.prune(key, e)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(key, kindString)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNil
	}
	return e.str, nil
}

func (s *MemoryStore) set(key, value string, ttl time.Duration) {
	e := &entry{kind: kindString, str: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	s.set(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Keys matches with path.Match, which covers the *, ? and [...] globs used here.
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	keys := []string{}
	for key, e := range s.entries {
		if e.expired(now) {
			continue
		}
		ok, err := path.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
