// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/askany/auth"
	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/stats"
)

// MaxTitleLength bounds a session title, in characters.
const MaxTitleLength = 200

const (
	fieldTitle     = "title"
	fieldCreatedAt = "createdAt"
	fieldMode      = "mode"
	fieldCreatorID = "creatorId"
)

// Counter receives the global counter bumps. *stats.Aggregator implements it.
type Counter interface {
	Increment(ctx context.Context, kind stats.Kind) error
}

// SessionStore owns session records, the creation-time index and the
// participant sets.
type SessionStore struct {
	kv      kvstore.Store
	counter Counter
	now     func() time.Time
}

func NewSessionStore(kv kvstore.Store, counter Counter, opts ...Option) *SessionStore {
	o := buildOptions(opts)
	return &SessionStore{kv: kv, counter: counter, now: o.now}
}

// CreateSession persists a new session in normal mode owned by creatorID.
func (s *SessionStore) CreateSession(ctx context.Context, title, creatorID string) (models.Session, error) {
	if err := auth.ValidateClientID(creatorID); err != nil {
		return models.Session{}, validationf("%v", err)
	}
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Session{}, validationf("title must be at most %d characters", MaxTitleLength)
	}

	slug, err := auth.GenerateSlug()
	if err != nil {
		return models.Session{}, err
	}

	session := models.Session{
		Slug:      slug,
		Title:     title,
		CreatedAt: s.now().UTC(),
		Mode:      models.ModeNormal,
		CreatorID: creatorID,
	}

	// Index first: a hash without an index entry could never expire.
	if err := s.kv.ZAdd(ctx, sessionsIndex, float64(session.CreatedAt.UnixMilli()), slug); err != nil {
		return models.Session{}, storeErr("index session", err)
	}
	if err := s.kv.HSet(ctx, sessionKey(slug), encodeSession(session)); err != nil {
		return models.Session{}, storeErr("create session", err)
	}

	s.increment(ctx, stats.KindSession, "slug", slug)
	slog.Info("session created", "slug", slug)
	return session, nil
}

// increment bumps a global counter. A failure only costs statistics, so it
// is logged rather than failing a request that already succeeded.
func (s *SessionStore) increment(ctx context.Context, kind stats.Kind, args ...any) {
	if s.counter == nil {
		return
	}
	if err := s.counter.Increment(ctx, kind); err != nil {
		slog.Error("failed to increment stats", append([]any{"kind", kind, "error", err}, args...)...)
	}
}

// Lookup loads a session without joining it.
func (s *SessionStore) Lookup(ctx context.Context, slug string) (models.Session, error) {
	if !validKeyPart(slug) {
		return models.Session{}, notFound("session", slug)
	}
	fields, err := s.kv.HGetAll(ctx, sessionKey(slug))
	if err != nil {
		return models.Session{}, storeErr("load session", err)
	}
	session, ok := decodeSession(slug, fields)
	if !ok {
		return models.Session{}, notFound("session", slug)
	}
	count, err := s.kv.SCard(ctx, participantsKey(slug))
	if err != nil {
		return models.Session{}, storeErr("count participants", err)
	}
	session.ParticipantCount = count
	return session, nil
}

// GetSession loads a session and records clientID as a participant. The
// participant counters move exactly once per (session, client) pair.
func (s *SessionStore) GetSession(ctx context.Context, slug, clientID string) (models.Session, bool, error) {
	if err := auth.ValidateClientID(clientID); err != nil {
		return models.Session{}, false, validationf("%v", err)
	}
	session, err := s.Lookup(ctx, slug)
	if err != nil {
		return models.Session{}, false, err
	}

	joined, err := s.kv.SAdd(ctx, participantsKey(slug), clientID)
	if err != nil {
		return models.Session{}, false, storeErr("join session", err)
	}
	if joined {
		session.ParticipantCount++
		s.increment(ctx, stats.KindParticipant, "slug", slug)
	}
	return session, auth.IsOwner(clientID, session.CreatorID), nil
}

// SetMode overwrites the session's visibility mode.
func (s *SessionStore) SetMode(ctx context.Context, slug, mode string) (models.Session, error) {
	if mode != models.ModeNormal && mode != models.ModeSpotlight {
		return models.Session{}, validationf("mode must be %q or %q", models.ModeNormal, models.ModeSpotlight)
	}
	session, err := s.Lookup(ctx, slug)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.kv.HSet(ctx, sessionKey(slug), map[string]string{fieldMode: mode}); err != nil {
		return models.Session{}, storeErr("set mode", err)
	}
	session.Mode = mode
	slog.Info("session mode changed", "slug", slug, "mode", mode)
	return session, nil
}

// IsOwner reports whether clientID created the session.
func (s *SessionStore) IsOwner(ctx context.Context, slug, clientID string) (bool, error) {
	session, err := s.Lookup(ctx, slug)
	if err != nil {
		return false, err
	}
	return auth.IsOwner(clientID, session.CreatorID), nil
}

// RequireOwner loads the session and fails with ErrForbidden unless
// clientID created it.
func (s *SessionStore) RequireOwner(ctx context.Context, slug, clientID string) (models.Session, error) {
	if err := auth.ValidateClientID(clientID); err != nil {
		return models.Session{}, validationf("%v", err)
	}
	session, err := s.Lookup(ctx, slug)
	if err != nil {
		return models.Session{}, err
	}
	if !auth.IsOwner(clientID, session.CreatorID) {
		return models.Session{}, fmt.Errorf("session %q: %w", slug, ErrForbidden)
	}
	return session, nil
}

func (s *SessionStore) Exists(ctx context.Context, slug string) (bool, error) {
	_, err := s.Lookup(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Expired lists the slugs of sessions created at or before cutoff, oldest first.
func (s *SessionStore) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	slugs, err := s.kv.ZRangeByScore(ctx, sessionsIndex, math.Inf(-1), float64(cutoff.UnixMilli()))
	if err != nil {
		return nil, storeErr("list expired sessions", err)
	}
	return slugs, nil
}

// Delete removes everything the session owns directly, leaf to root: the
// question index, the participant set, the record, then the index entry.
// The questions themselves must already be gone.
func (s *SessionStore) Delete(ctx context.Context, slug string) error {
	steps := []struct {
		op  string
		run func() error
	}{
		{"delete question index", func() error { return s.kv.Del(ctx, questionIndexKey(slug)) }},
		{"delete participants", func() error { return s.kv.Del(ctx, participantsKey(slug)) }},
		{"delete session", func() error { return s.kv.Del(ctx, sessionKey(slug)) }},
		{"unindex session", func() error { return s.kv.ZRem(ctx, sessionsIndex, slug) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return storeErr(step.op, err)
		}
	}
	return nil
}

func encodeSession(s models.Session) map[string]string {
	return map[string]string{
		fieldTitle:     s.Title,
		fieldCreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldMode:      s.Mode,
		fieldCreatorID: s.CreatorID,
	}
}

// decodeSession rejects partial records, such as a mode write that landed
// after the retention job removed the rest of the hash.
func decodeSession(slug string, fields map[string]string) (models.Session, bool) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil || fields[fieldCreatorID] == "" {
		return models.Session{}, false
	}
	mode := fields[fieldMode]
	if mode != models.ModeSpotlight {
		mode = models.ModeNormal
	}
	return models.Session{
		Slug:      slug,
		Title:     fields[fieldTitle],
		CreatedAt: createdAt,
		Mode:      mode,
		CreatorID: fields[fieldCreatorID],
	}, true
}
