// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"go.uber.org/multierr"
)

// Kind selects which global counter Increment bumps.
type Kind string

const (
	KindSession     Kind = "session"
	KindParticipant Kind = "participant"
)

const (
	statsKey    = "stats"
	archivedKey = "stats:archived"
	dailyKey    = "stats:daily"

	// DailyHistory is how many daily snapshots are kept in the store.
	DailyHistory = 30

	fieldTotalSessions     = "totalSessions"
	fieldTotalParticipants = "totalParticipants"
	fieldLastUpdated       = "lastUpdated"
	fieldArchivedSessions  = "archivedSessions"
	fieldArchivedQuestions = "archivedQuestions"
	fieldArchivedUpvotes   = "archivedUpvotes"
)

var ErrUnknownKind = errors.New("unknown stats kind")

// StarSource supplies the cached repository star count.
type StarSource interface {
	Stars(ctx context.Context) int64
}

// ArchiveSink keeps the per-session history of purged sessions.
type ArchiveSink interface {
	ArchiveSession(ctx context.Context, summary models.SessionSummary) error
}

type Option func(*Aggregator)

func WithStars(src StarSource) Option {
	return func(a *Aggregator) { a.stars = src }
}

func WithArchive(sink ArchiveSink) Option {
	return func(a *Aggregator) { a.archive = sink }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator maintains the global counters in the live store and mirrors
// them into a SnapshotFile that never moves backwards.
type Aggregator struct {
	kv      kvstore.Store
	file    *SnapshotFile
	stars   StarSource
	archive ArchiveSink
	now     func() time.Time

	// serializes read-merge-write of the file within this process
	fileMu sync.Mutex
}

func New(kv kvstore.Store, file *SnapshotFile, opts ...Option) *Aggregator {
	a := &Aggregator{
		kv:   kv,
		file: file,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize seeds the live counters from the file when the store has none,
// e.g. after a Redis flush or on a brand-new deployment.
func (a *Aggregator) Initialize(ctx context.Context) error {
	exists, err := a.kv.Exists(ctx, statsKey)
	if err != nil {
		return fmt.Errorf("failed to check live stats: %w", err)
	}
	if exists {
		return nil
	}

	snap, err := a.file.Load()
	if err != nil {
		return err
	}
	if snap.LastUpdated.IsZero() {
		snap.LastUpdated = a.now().UTC()
	}
	if err := a.kv.HSet(ctx, statsKey, encodeLive(snap)); err != nil {
		return fmt.Errorf("failed to seed live stats: %w", err)
	}
	slog.Info("live stats seeded from file",
		"path", a.file.Path(),
		"total_sessions", snap.TotalSessions,
		"total_participants", snap.TotalParticipants,
	)
	return nil
}

// Increment bumps one global counter and the lastUpdated timestamp.
func (a *Aggregator) Increment(ctx context.Context, kind Kind) error {
	var field string
	switch kind {
	case KindSession:
		field = fieldTotalSessions
	case KindParticipant:
		field = fieldTotalParticipants
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if _, err := a.kv.HIncrBy(ctx, statsKey, field, 1); err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}
	return a.touch(ctx)
}

func (a *Aggregator) touch(ctx context.Context) error {
	return a.kv.HSet(ctx, statsKey, map[string]string{
		fieldLastUpdated: a.now().UTC().Format(time.RFC3339Nano),
	})
}

// live reads the store's counters; ok is false when none exist yet.
func (a *Aggregator) live(ctx context.Context) (snap models.StatsSnapshot, ok bool, err error) {
	fields, err := a.kv.HGetAll(ctx, statsKey)
	if err != nil {
		return snap, false, err
	}
	if len(fields) == 0 {
		return snap, false, nil
	}
	return decodeLive(fields), true, nil
}

// GetStats returns the merged view of live and file counters. When the store
// is unreachable it degrades to the file instead of failing.
func (a *Aggregator) GetStats(ctx context.Context) (models.StatsSnapshot, error) {
	file, err := a.file.Load()
	if err != nil {
		slog.Warn("stats file unreadable", "path", a.file.Path(), "error", err)
	}

	result := file
	live, ok, err := a.live(ctx)
	switch {
	case err != nil:
		slog.Warn("live stats unavailable, serving file snapshot", "error", err)
	case ok:
		result = Merge(live, file)
	}

	if a.stars != nil {
		if stars := a.stars.Stars(ctx); stars > 0 {
			result.StarsCount = stars
		}
	}

	if daily, err := a.LatestDaily(ctx); err == nil {
		result.DailyStats = daily
	}
	return result, nil
}

// SyncToFile writes Merge(live, file) to disk, but only when that advances
// at least one counter. A cold or stale store can never regress the file.
func (a *Aggregator) SyncToFile(ctx context.Context) error {
	a.fileMu.Lock()
	defer a.fileMu.Unlock()

	file, err := a.file.Load()
	if err != nil {
		return err
	}
	live, ok, err := a.live(ctx)
	if err != nil {
		return fmt.Errorf("failed to read live stats: %w", err)
	}
	if !ok {
		return nil
	}
	if a.stars != nil {
		live.StarsCount = a.stars.Stars(ctx)
	}

	merged := Merge(live, file)
	if !advances(merged, file) {
		return nil
	}
	if err := a.file.Save(merged); err != nil {
		return err
	}
	slog.Info("stats synced to file",
		"path", a.file.Path(),
		"total_sessions", merged.TotalSessions,
		"total_participants", merged.TotalParticipants,
	)
	return nil
}

// Archive records a purged session's contribution before its data is deleted.
// Counters are bumped at most once per slug; the archive sink is called on
// every attempt and must itself ignore duplicates.
//
// The marker and the counters commit together: when an increment fails, the
// increments already applied are reversed and the marker is removed, so a
// retry counts the session again instead of skipping it.
func (a *Aggregator) Archive(ctx context.Context, summary models.SessionSummary) error {
	first, err := a.kv.SAdd(ctx, archivedKey, summary.Slug)
	if err != nil {
		return fmt.Errorf("failed to mark session archived: %w", err)
	}
	if first {
		if err := a.addArchived(ctx, summary); err != nil {
			return err
		}
	}

	if a.archive != nil {
		if err := a.archive.ArchiveSession(ctx, summary); err != nil {
			return fmt.Errorf("failed to write session archive: %w", err)
		}
	}
	return nil
}

type increment struct {
	field string
	by    int64
}

func (a *Aggregator) addArchived(ctx context.Context, summary models.SessionSummary) error {
	increments := []increment{
		{fieldArchivedSessions, 1},
		{fieldArchivedQuestions, summary.QuestionCount},
		{fieldArchivedUpvotes, summary.TotalUpvotes},
	}
	for i, inc := range increments {
		if _, err := a.kv.HIncrBy(ctx, statsKey, inc.field, inc.by); err != nil {
			err = fmt.Errorf("failed to increment %s: %w", inc.field, err)
			return multierr.Append(err, a.rollbackArchived(ctx, summary.Slug, increments[:i]))
		}
	}
	return a.touch(ctx)
}

// rollbackArchived reverses applied increments, newest first, then clears
// the marker. The marker stays when a reversal fails.
func (a *Aggregator) rollbackArchived(ctx context.Context, slug string, applied []increment) error {
	for i := len(applied) - 1; i >= 0; i-- {
		inc := applied[i]
		if _, err := a.kv.HIncrBy(ctx, statsKey, inc.field, -inc.by); err != nil {
			slog.Error("failed to roll back archived stats", "slug", slug, "field", inc.field, "error", err)
			return fmt.Errorf("failed to roll back %s: %w", inc.field, err)
		}
	}
	if _, err := a.kv.SRem(ctx, archivedKey, slug); err != nil {
		slog.Error("failed to clear archive marker", "slug", slug, "error", err)
		return fmt.Errorf("failed to clear archive marker: %w", err)
	}
	return nil
}

// Forget drops the archived marker once a session is fully deleted.
func (a *Aggregator) Forget(ctx context.Context, slug string) error {
	_, err := a.kv.SRem(ctx, archivedKey, slug)
	return err
}

// RecordDaily stores a dated copy of the counters, keeping DailyHistory entries.
func (a *Aggregator) RecordDaily(ctx context.Context) error {
	snap, err := a.GetStats(ctx)
	if err != nil {
		return err
	}
	now := a.now().UTC()
	daily := models.DailyStats{
		Date:              now.Format("2006-01-02"),
		TotalSessions:     snap.TotalSessions,
		TotalParticipants: snap.TotalParticipants,
		RecordedAt:        now,
	}
	data, err := json.Marshal(daily)
	if err != nil {
		return fmt.Errorf("failed to encode daily stats: %w", err)
	}
	if err := a.kv.LPush(ctx, dailyKey, string(data)); err != nil {
		return fmt.Errorf("failed to store daily stats: %w", err)
	}
	if err := a.kv.LTrim(ctx, dailyKey, 0, DailyHistory-1); err != nil {
		return fmt.Errorf("failed to trim daily stats: %w", err)
	}
	slog.Info("daily stats recorded", "date", daily.Date, "total_sessions", daily.TotalSessions)
	return a.SyncToFile(ctx)
}

// LatestDaily returns the newest daily snapshot, or nil when none exists.
func (a *Aggregator) LatestDaily(ctx context.Context) (*models.DailyStats, error) {
	values, err := a.kv.LRange(ctx, dailyKey, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	var daily models.DailyStats
	if err := json.Unmarshal([]byte(values[0]), &daily); err != nil {
		return nil, fmt.Errorf("failed to decode daily stats: %w", err)
	}
	return &daily, nil
}

func encodeLive(snap models.StatsSnapshot) map[string]string {
	return map[string]string{
		fieldTotalSessions:     strconv.FormatInt(snap.TotalSessions, 10),
		fieldTotalParticipants: strconv.FormatInt(snap.TotalParticipants, 10),
		fieldArchivedSessions:  strconv.FormatInt(snap.ArchivedSessions, 10),
		fieldArchivedQuestions: strconv.FormatInt(snap.ArchivedQuestions, 10),
		fieldArchivedUpvotes:   strconv.FormatInt(snap.ArchivedUpvotes, 10),
		fieldLastUpdated:       snap.LastUpdated.UTC().Format(time.RFC3339Nano),
	}
}

// decodeLive tolerates missing or malformed fields by treating them as zero.
func decodeLive(fields map[string]string) models.StatsSnapshot {
	parse := func(name string) int64 {
		n, _ := strconv.ParseInt(fields[name], 10, 64)
		return n
	}
	snap := models.StatsSnapshot{
		TotalSessions:     parse(fieldTotalSessions),
		TotalParticipants: parse(fieldTotalParticipants),
		ArchivedSessions:  parse(fieldArchivedSessions),
		ArchivedQuestions: parse(fieldArchivedQuestions),
		ArchivedUpvotes:   parse(fieldArchivedUpvotes),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldLastUpdated]); err == nil {
		snap.LastUpdated = ts
	}
	return snap
}
