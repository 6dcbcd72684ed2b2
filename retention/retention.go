// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/store"
	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
)

// DefaultWindow is how long a session lives before it is purged.
const DefaultWindow = 7 * 24 * time.Hour

// Archiver preserves a session's statistics before deletion.
// *stats.Aggregator implements it.
type Archiver interface {
	Archive(ctx context.Context, summary models.SessionSummary) error
	Forget(ctx context.Context, slug string) error
	SyncToFile(ctx context.Context) error
}

// Report summarizes one sweep.
type Report struct {
	Expired  int
	Deleted  int
	Failed   int
	Orphans  int
	Duration time.Duration
}

// Job archives and deletes sessions older than its window.
type Job struct {
	kv        kvstore.Store
	sessions  *store.SessionStore
	questions *store.QuestionStore
	archiver  Archiver
	window    time.Duration
	now       func() time.Time
}

func New(kv kvstore.Store, sessions *store.SessionStore, questions *store.QuestionStore, archiver Archiver, window time.Duration) *Job {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Job{
		kv:        kv,
		sessions:  sessions,
		questions: questions,
		archiver:  archiver,
		window:    window,
		now:       time.Now,
	}
}

// Run performs one sweep. A failing session is logged and skipped; the
// combined error of all failures is returned alongside the report.
func (j *Job) Run(ctx context.Context) (Report, error) {
	start := j.now()
	cutoff := start.Add(-j.window)
	var report Report

	slugs, err := j.sessions.Expired(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.Expired = len(slugs)

	var errs error
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if err := j.purge(ctx, slug); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", slug, err))
			slog.Error("failed to purge session", "slug", slug, "error", err)
			continue
		}
		report.Deleted++
	}

	orphans, err := store.SweepOrphans(ctx, j.kv)
	report.Orphans = orphans
	errs = multierr.Append(errs, err)

	if err := j.archiver.SyncToFile(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sync stats: %w", err))
	}

	report.Duration = j.now().Sub(start)
	slog.Info("retention sweep finished",
		"cutoff", humanize.Time(cutoff),
		"expired", report.Expired,
		"deleted", report.Deleted,
		"failed", report.Failed,
		"orphans", report.Orphans,
		"duration", report.Duration,
	)
	return report, errs
}

// purge archives then deletes one session. Deletion is skipped when
// archiving fails, so the next sweep retries with nothing lost.
func (j *Job) purge(ctx context.Context, slug string) error {
	session, err := j.sessions.Lookup(ctx, slug)
	missing := errors.Is(err, store.ErrNotFound)
	if err != nil && !missing {
		return err
	}

	questions, err := j.questions.All(ctx, slug)
	if err != nil {
		return err
	}

	// A missing record means an earlier sweep archived it and stopped
	// part-way through deletion.
	if !missing {
		summary := Summarize(session, questions, j.now())
		if err := j.archiver.Archive(ctx, summary); err != nil {
			return err
		}
	}

	ids, err := j.questions.IDs(ctx, slug)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := j.questions.Delete(ctx, id); err != nil {
			return err
		}
	}
	if err := j.sessions.Delete(ctx, slug); err != nil {
		return err
	}

	if err := j.archiver.Forget(ctx, slug); err != nil {
		slog.Warn("failed to clear archive marker", "slug", slug, "error", err)
	}
	if missing {
		slog.Info("session remnants purged", "slug", slug, "questions", len(ids))
		return nil
	}
	slog.Info("session purged",
		"slug", slug,
		"questions", len(ids),
		"age", humanize.RelTime(session.CreatedAt, j.now(), "old", ""),
	)
	return nil
}

// Summarize condenses a session and its questions into what survives purging.
func Summarize(session models.Session, questions []models.Question, at time.Time) models.SessionSummary {
	summary := models.SessionSummary{
		Slug:             session.Slug,
		Title:            session.Title,
		CreatedAt:        session.CreatedAt,
		ArchivedAt:       at.UTC(),
		ParticipantCount: session.ParticipantCount,
		QuestionCount:    int64(len(questions)),
	}
	for _, q := range questions {
		summary.TotalUpvotes += q.UpvoteCount
		if q.IsAnswered {
			summary.AnsweredCount++
		}
	}
	return summary
}
