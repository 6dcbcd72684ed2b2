// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the archive.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are unix milliseconds so sqlite and postgres scan them alike.
const schema = `
-- Purged sessions
CREATE TABLE IF NOT EXISTS archived_session (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at_ms BIGINT NOT NULL,
    archived_at_ms BIGINT NOT NULL,
    participant_count BIGINT NOT NULL DEFAULT 0,
    question_count BIGINT NOT NULL DEFAULT 0,
    answered_count BIGINT NOT NULL DEFAULT 0,
    total_upvotes BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_archived_session_archived_at ON archived_session(archived_at_ms);
`
