// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"

	"github.com/danielhkuo/askany/kvstore"
)

// UpvoteLedger is the per-question set of clients currently upvoting it.
// A question's upvote count is the set's cardinality; no separate counter
// exists that could drift from it.
type UpvoteLedger struct {
	kv kvstore.Store
}

func NewUpvoteLedger(kv kvstore.Store) *UpvoteLedger {
	return &UpvoteLedger{kv: kv}
}

// Toggle flips clientID's upvote and reports whether it is now set.
// Both branches are single atomic set operations, so concurrent toggles
// from different clients never overwrite each other.
func (l *UpvoteLedger) Toggle(ctx context.Context, questionID, clientID string) (bool, error) {
	added, err := l.kv.SAdd(ctx, upvotesKey(questionID), clientID)
	if err != nil {
		return false, storeErr("add upvote", err)
	}
	if added {
		return true, nil
	}
	if _, err := l.kv.SRem(ctx, upvotesKey(questionID), clientID); err != nil {
		return false, storeErr("remove upvote", err)
	}
	return false, nil
}

func (l *UpvoteLedger) HasUpvoted(ctx context.Context, questionID, clientID string) (bool, error) {
	if clientID == "" {
		return false, nil
	}
	ok, err := l.kv.SIsMember(ctx, upvotesKey(questionID), clientID)
	if err != nil {
		return false, storeErr("check upvote", err)
	}
	return ok, nil
}

func (l *UpvoteLedger) Count(ctx context.Context, questionID string) (int64, error) {
	n, err := l.kv.SCard(ctx, upvotesKey(questionID))
	if err != nil {
		return 0, storeErr("count upvotes", err)
	}
	return n, nil
}

// Clear drops every upvote of a question. Only the retention job calls it.
func (l *UpvoteLedger) Clear(ctx context.Context, questionID string) error {
	if err := l.kv.Del(ctx, upvotesKey(questionID)); err != nil {
		return storeErr("clear upvotes", err)
	}
	return nil
}
