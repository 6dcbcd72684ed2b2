// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/askany/models"
)

var (
	testCreated  = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	testArchived = time.Date(2025, 4, 8, 4, 0, 0, 0, time.UTC)
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, CreateSchema(conn))
	return conn
}

func newSummary(slug string, archivedAt time.Time) models.SessionSummary {
	return models.SessionSummary{
		Slug:             slug,
		Title:            "AMA " + slug,
		CreatedAt:        testCreated,
		ArchivedAt:       archivedAt,
		ParticipantCount: 12,
		QuestionCount:    5,
		AnsweredCount:    2,
		TotalUpvotes:     30,
	}
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn := openSQLite(t)
	assert.NoError(t, CreateSchema(conn))
}

func TestArchiveStore_SQLite(t *testing.T) {
	ctx := context.Background()
	store := NewArchiveStore(openSQLite(t))

	require.NoError(t, store.ArchiveSession(ctx, newSummary("older", testArchived)))
	require.NoError(t, store.ArchiveSession(ctx, newSummary("newer", testArchived.Add(time.Hour))))

	// A retried sweep archives the same slug again; the first row wins.
	dup := newSummary("older", testArchived.Add(48*time.Hour))
	dup.TotalUpvotes = 999
	require.NoError(t, store.ArchiveSession(ctx, dup))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "newer", recent[0].Slug)
	assert.Equal(t, newSummary("older", testArchived), recent[1])

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestArchiveSession_Mock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	store := NewArchiveStore(conn)
	summary := newSummary("abc", testArchived)

	mock.ExpectExec("INSERT INTO archived_session .* ON CONFLICT \\(slug\\) DO NOTHING").
		WithArgs(
			summary.Slug,
			summary.Title,
			summary.CreatedAt.UnixMilli(),
			summary.ArchivedAt.UnixMilli(),
			summary.ParticipantCount,
			summary.QuestionCount,
			summary.AnsweredCount,
			summary.TotalUpvotes,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.ArchiveSession(context.Background(), summary))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveSession_MockError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectExec("INSERT INTO archived_session").WillReturnError(errors.New("connection reset"))

	err = NewArchiveStore(conn).ArchiveSession(context.Background(), newSummary("abc", testArchived))
	assert.ErrorContains(t, err, "inserting archived session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_MockScanError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	rows := sqlmock.NewRows([]string{"slug"}).AddRow("only-one-column")
	mock.ExpectQuery("SELECT .* FROM archived_session ORDER BY archived_at_ms DESC").WillReturnRows(rows)

	_, err = NewArchiveStore(conn).Recent(context.Background(), 0)
	assert.ErrorContains(t, err, "scanning archived session")
}
