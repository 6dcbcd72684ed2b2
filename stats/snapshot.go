// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/danielhkuo/askany/models"
)

// SnapshotFile is the durable JSON copy of the global counters.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

func (f *SnapshotFile) Path() string { return f.path }

// Load reads the snapshot. A missing file is an empty snapshot, not an error.
func (f *SnapshotFile) Load() (models.StatsSnapshot, error) {
	var snap models.StatsSnapshot
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read stats file: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("failed to parse stats file %s: %w", f.path, err)
	}
	snap.DailyStats = nil
	return snap, nil
}

// Save replaces the file atomically: readers see either the old or the new document.
func (f *SnapshotFile) Save(snap models.StatsSnapshot) error {
	snap.DailyStats = nil
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stats-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp stats file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync stats file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close stats file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace stats file: %w", err)
	}
	return nil
}

// Merge reconciles the live counters with the file copy. Every counter takes
// the larger value and lastUpdated the later one, so Merge is monotone and
// idempotent: Merge(x, x) == x and Merge(Merge(a, b), b) == Merge(a, b).
func Merge(live, file models.StatsSnapshot) models.StatsSnapshot {
	out := models.StatsSnapshot{
		TotalSessions:     max(live.TotalSessions, file.TotalSessions),
		TotalParticipants: max(live.TotalParticipants, file.TotalParticipants),
		StarsCount:        max(live.StarsCount, file.StarsCount),
		ArchivedSessions:  max(live.ArchivedSessions, file.ArchivedSessions),
		ArchivedQuestions: max(live.ArchivedQuestions, file.ArchivedQuestions),
		ArchivedUpvotes:   max(live.ArchivedUpvotes, file.ArchivedUpvotes),
		LastUpdated:       file.LastUpdated,
	}
	if live.LastUpdated.After(file.LastUpdated) {
		out.LastUpdated = live.LastUpdated
	}
	return out
}

// advances reports whether next carries any counter beyond prev.
func advances(next, prev models.StatsSnapshot) bool {
	return next.TotalSessions > prev.TotalSessions ||
		next.TotalParticipants > prev.TotalParticipants ||
		next.StarsCount > prev.StarsCount ||
		next.ArchivedSessions > prev.ArchivedSessions ||
		next.ArchivedQuestions > prev.ArchivedQuestions ||
		next.ArchivedUpvotes > prev.ArchivedUpvotes
}
