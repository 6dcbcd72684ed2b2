// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/danielhkuo/askany/kvstore"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"
)

// SweepOrphans deletes keys that no live session can reach: partial
// records written after a deletion, and child keys whose parent is gone.
// It returns the number of keys removed.
func SweepOrphans(ctx context.Context, kv kvstore.Store) (int, error) {
	sessions := NewSessionStore(kv, nil)
	var errs error
	removed := mapset.NewThreadUnsafeSet[string]()
	drop := func(key, reason string) {
		if removed.Contains(key) {
			return
		}
		if err := kv.Del(ctx, key); err != nil {
			errs = multierr.Append(errs, storeErr("delete orphan "+key, err))
			return
		}
		removed.Add(key)
		slog.Info("orphan key removed", "key", key, "reason", reason)
	}
	sessionAlive := func(slug string) (bool, error) {
		_, err := sessions.Lookup(ctx, slug)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	sessionKeys, err := kv.Keys(ctx, sessionPrefix+"*")
	if err != nil {
		return 0, storeErr("scan sessions", err)
	}
	for _, key := range sessionKeys {
		rest := strings.TrimPrefix(key, sessionPrefix)
		slug, suffix, _ := strings.Cut(rest, ":")
		if !validKeyPart(slug) {
			continue
		}
		alive, err := sessionAlive(slug)
		if err != nil {
			if errors.Is(err, kvstore.ErrWrongType) {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		if alive {
			continue
		}
		switch suffix {
		case "":
			drop(key, "partial session")
		case participantsSuffix[1:], questionsSuffix[1:]:
			drop(key, "session deleted")
		}
	}

	questionKeys, err := kv.Keys(ctx, questionPrefix+"*")
	if err != nil {
		return removed.Cardinality(), multierr.Append(errs, storeErr("scan questions", err))
	}
	for _, key := range questionKeys {
		rest := strings.TrimPrefix(key, questionPrefix)
		id, suffix, _ := strings.Cut(rest, ":")
		if !validKeyPart(id) {
			continue
		}
		fields, err := kv.HGetAll(ctx, questionKey(id))
		if err != nil {
			errs = multierr.Append(errs, storeErr("load question", err))
			continue
		}
		q, ok := decodeQuestion(id, fields)

		switch suffix {
		case "":
			if !ok {
				drop(key, "partial question")
				continue
			}
			alive, err := sessionAlive(q.SessionID)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if alive {
				continue
			}
			if has, err := kv.Exists(ctx, upvotesKey(id)); err == nil && has {
				drop(upvotesKey(id), "session deleted")
			}
			drop(key, "session deleted")
		case upvotesSuffix[1:]:
			if !ok {
				drop(key, "question deleted")
			}
		}
	}
	return removed.Cardinality(), errs
}
