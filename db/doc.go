// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db stores the history of purged sessions.

Live state lives in the key-value store; this database only receives a
summary row per session when the retention job deletes it.

# Connecting

	conn, err := db.Open(db.TypeSQLite, "file:data/archive.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

  - archived_session: one row per purged session (slug, title, timestamps
    in unix milliseconds, participant/question/answered/upvote totals)

# Archive Store

	archive := db.NewArchiveStore(conn)
	archive.ArchiveSession(ctx, summary) // duplicate slugs are ignored
	recent, _ := archive.Recent(ctx, 20)
*/
package db
