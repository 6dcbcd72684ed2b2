// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/askany/cliparse"
	"github.com/danielhkuo/askany/db"
	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/stats"
	"github.com/danielhkuo/askany/store"
)

// FixedStars is a star source that never calls GitHub.
type FixedStars int64

func (s FixedStars) Stars(context.Context) int64 { return int64(s) }

// Services bundles everything the HTTP layer needs, backed by an in-memory
// key-value store and an in-memory sqlite archive.
type Services struct {
	KV        *kvstore.MemoryStore
	DB        *sql.DB
	Archive   *db.ArchiveStore
	Stats     *stats.Aggregator
	Sessions  *store.SessionStore
	Questions *store.QuestionStore
	Stars     FixedStars
}

// SetupTestDB opens an in-memory sqlite archive with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// NewServices wires a fresh set of services whose stats file lives in t.TempDir()
func NewServices(t *testing.T) *Services {
	t.Helper()

	kv := kvstore.NewMemoryStore()
	conn := SetupTestDB(t)
	archive := db.NewArchiveStore(conn)
	stars := FixedStars(42)

	file := stats.NewSnapshotFile(filepath.Join(t.TempDir(), "stats.json"))
	aggregator := stats.New(kv, file, stats.WithStars(stars), stats.WithArchive(archive))
	if err := aggregator.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize stats: %v", err)
	}

	sessions := store.NewSessionStore(kv, aggregator)
	questions := store.NewQuestionStore(kv, sessions, store.NewUpvoteLedger(kv))

	return &Services{
		KV:        kv,
		DB:        conn,
		Archive:   archive,
		Stats:     aggregator,
		Sessions:  sessions,
		Questions: questions,
		Stars:     stars,
	}
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	cfg := cliparse.Defaults()
	cfg.Store = cliparse.StoreMemory
	cfg.DatabaseURL = ":memory:"
	return cfg
}

// CreateTestSession creates a session owned by creatorID
func CreateTestSession(t *testing.T, svc *Services, creatorID string) models.Session {
	t.Helper()

	session, err := svc.Sessions.CreateSession(context.Background(), "Test AMA", creatorID)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return session
}

// CreateTestQuestion adds an anonymous question to a session
func CreateTestQuestion(t *testing.T, svc *Services, slug, authorID, content string) models.Question {
	t.Helper()

	q, err := svc.Questions.CreateQuestion(context.Background(), slug, content, authorID, "", true)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}
	return q
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
