// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store implements the session and question state model on top of a
shared key-value store.

Every record is its own key and every mutation is one atomic store
operation, so concurrent request handlers need no locks:

	session:{slug}               hash   title, createdAt, mode, creatorId
	sessions                     zset   slug scored by createdAt (unix ms)
	session:{slug}:participants  set    client ids that joined
	session:{slug}:questions     set    question ids
	question:{id}                hash   sessionId, content, authorId, nickname, flags, createdAt
	question:{id}:upvotes        set    client ids currently upvoting

Counts are never stored. A session's participant count is the cardinality
of its participant set and a question's upvote count is the cardinality of
its upvote set, so they cannot drift from the records they summarize.

# Sessions

	sessions := store.NewSessionStore(kv, aggregator)
	session, err := sessions.CreateSession(ctx, "Friday AMA", clientID)
	session, isOwner, err := sessions.GetSession(ctx, slug, clientID) // joins once

# Questions

	questions := store.NewQuestionStore(kv, sessions, store.NewUpvoteLedger(kv))
	q, err := questions.CreateQuestion(ctx, slug, "Why?", clientID, "sam", false)
	list, err := questions.ListQuestions(ctx, slug, clientID)
	q, upvoted, err := questions.ToggleUpvote(ctx, q.ID, clientID, idempotencyKey)

ListQuestions applies Visible and SortQuestions: upvotes descending, then
newest first, then id.

Upvoting toggles. A second upvote from the same client removes the first;
there is no "already voted" error. Retries of one click are collapsed by
passing the same request id, whose outcome is remembered for RequestTTL.

# Deletion

Deletion runs leaf to root (upvotes, question, question index,
participants, session, index entry). A reader racing it either sees the
session as it was or gets ErrNotFound. Writes that land after a deletion
leave partial hashes, which readers treat as absent and SweepOrphans
removes.

# Errors

Operations return errors wrapping ErrValidation, ErrNotFound, ErrForbidden
or ErrStoreUnavailable; test with errors.Is.
*/
package store
