// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the askany API.

# Handler Types

Each handler is a struct over the stores it needs:

  - SessionHandler: create, join, list questions, switch mode
  - QuestionHandler: ask, upvote, answer, spotlight
  - StatsHandler: global stats, GitHub stars, archived sessions

	sessionHandler := handlers.NewSessionHandler(sessions, questions)

# Identity

Clients identify themselves with a self-reported clientId (query parameter
on GETs, JSON field on writes). The session creator's clientId unlocks the
owner-only operations; other clients get 403. The creator and author ids
are never serialized.

# Upvotes

	POST /questions/{id}/upvote  {"clientId": "..."}

Each call toggles the caller's vote and returns the question with the new
upvoteCount and hasUpvoted. Send an Idempotency-Key header to make retries
of one click safe: repeats within ten minutes replay the first outcome.

# Errors

Store errors map onto statuses in writeError: ErrValidation 400,
ErrNotFound 404, ErrForbidden 403, ErrStoreUnavailable 503, anything
else 500. Bodies are models.ErrorResponse.
*/
package handlers
