// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the askany API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Services{
		Store:     kv,
		Sessions:  sessions,
		Questions: questions,
		Stats:     aggregator,
		Stars:     starCache,
		Archive:   archiveStore,
	})

CORS is applied by the caller around the mux.

# Endpoints

Health:

	GET /health - 200 OK, or 503 when the store does not answer a ping

Sessions:

	POST  /sessions                   - Create session
	GET   /sessions/{slug}            - Join session, with ranked questions
	GET   /sessions/{slug}/questions  - Ranked questions only
	PATCH /sessions/{slug}/mode       - Switch normal/spotlight (creator only)

Questions:

	POST  /questions                  - Ask a question
	POST  /questions/{id}/upvote      - Toggle the caller's upvote
	PATCH /questions/{id}/answer      - Mark answered (creator only)
	PATCH /questions/{id}/spotlight   - Feature or unfeature (creator only)

Stats (public):

	GET /stats          - Global counters, stars and the latest daily snapshot
	GET /stats/archive  - Recently purged sessions
	GET /github/stars   - Cached repository star count
*/
package router
