// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the askany API server.

askany runs live "ask me anything" sessions: a host opens a session,
the audience posts questions and upvotes them, and the host answers or
spotlights them. Sessions expire after a retention window; their
statistics outlive them.

# Starting the Server

With a local Redis on the default port:

	go run .

Without Redis, for development:

	go run . -store memory

Or from a config file:

	go run . -config askany.toml

# Configuration

Every setting has a flag, an environment variable and a TOML key; see
package cliparse. The most common ones:

  - PORT (-p): Server port (default: 5001)
  - REDIS_ADDR (-redis-addr): Redis host:port (default: localhost:6379)
  - STATS_FILE (-stats-file): Durable stats snapshot (default: data/stats.json)
  - DATABASE_TYPE / DATABASE_URL (-t / -d): Archive database (default: sqlite)
  - CORS_ORIGINS (-cors-origins): Allowed frontend origins

# Background Jobs

The scheduler runs, in UTC:

  - retention: purge sessions past the retention window (daily 04:00)
  - stats-sync: mirror live counters to the stats file (every 5 minutes)
  - daily-stats: record a dated counter snapshot (midnight)
  - github-stars: refresh the cached star count

# Architecture

  - handlers: HTTP request handlers (sessions, questions, stats)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response and domain types
  - auth: Slugs, client ids, ownership checks
  - kvstore: Redis and in-memory key-value stores
  - store: Sessions, questions and the upvote ledger
  - stats: Global counters and the durable snapshot
  - retention: Expiry sweep with archiving
  - stars: GitHub star cache
  - scheduler: Cron and interval jobs
  - db: Archive of purged sessions
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
