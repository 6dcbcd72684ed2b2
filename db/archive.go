// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/danielhkuo/askany/models"
)

// DefaultRecentLimit caps Recent when no limit is given.
const DefaultRecentLimit = 50

// psq builds statements with dollar placeholders, which both drivers accept.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var archiveColumns = []string{
	"slug", "title", "created_at_ms", "archived_at_ms",
	"participant_count", "question_count", "answered_count", "total_upvotes",
}

// ArchiveStore keeps one row per purged session.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// ArchiveSession inserts a summary. A slug archived before is left as is,
// so a retried sweep is harmless.
func (s *ArchiveStore) ArchiveSession(ctx context.Context, summary models.SessionSummary) error {
	query, args, err := psq.Insert("archived_session").
		Columns(archiveColumns...).
		Values(
			summary.Slug,
			summary.Title,
			summary.CreatedAt.UnixMilli(),
			summary.ArchivedAt.UnixMilli(),
			summary.ParticipantCount,
			summary.QuestionCount,
			summary.AnsweredCount,
			summary.TotalUpvotes,
		).
		Suffix("ON CONFLICT (slug) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("building archive insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting archived session: %w", err)
	}
	return nil
}

// Recent returns the most recently archived sessions, newest first.
func (s *ArchiveStore) Recent(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	query, args, err := psq.Select(archiveColumns...).
		From("archived_session").
		OrderBy("archived_at_ms DESC", "slug ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building archive query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archived sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]models.SessionSummary, 0, limit)
	for rows.Next() {
		var (
			summary               models.SessionSummary
			createdMs, archivedMs int64
		)
		if err := rows.Scan(
			&summary.Slug,
			&summary.Title,
			&createdMs,
			&archivedMs,
			&summary.ParticipantCount,
			&summary.QuestionCount,
			&summary.AnsweredCount,
			&summary.TotalUpvotes,
		); err != nil {
			return nil, fmt.Errorf("scanning archived session: %w", err)
		}
		summary.CreatedAt = time.UnixMilli(createdMs).UTC()
		summary.ArchivedAt = time.UnixMilli(archivedMs).UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archived sessions: %w", err)
	}
	return summaries, nil
}

// Count returns the number of archived sessions.
func (s *ArchiveStore) Count(ctx context.Context) (int64, error) {
	query, args, err := psq.Select("COUNT(*)").From("archived_session").ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting archived sessions: %w", err)
	}
	return n, nil
}
