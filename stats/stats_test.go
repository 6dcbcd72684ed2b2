// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type fixedStars int64

func (s fixedStars) Stars(context.Context) int64 { return int64(s) }

// downStore fails every hash read, as an unreachable Redis would.
type downStore struct {
	kvstore.Store
}

func (downStore) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, fmt.Errorf("hgetall: %w", kvstore.ErrUnavailable)
}

func (downStore) LRange(context.Context, string, int64, int64) ([]string, error) {
	return nil, fmt.Errorf("lrange: %w", kvstore.ErrUnavailable)
}

// flakyIncr fails HIncrBy on the listed calls, counted from one.
type flakyIncr struct {
	kvstore.Store
	fail  map[int]bool
	calls int
}

func (f *flakyIncr) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	f.calls++
	if f.fail[f.calls] {
		return 0, fmt.Errorf("hincrby %s: %w", field, kvstore.ErrUnavailable)
	}
	return f.Store.HIncrBy(ctx, key, field, incr)
}

type recordingSink struct {
	mu        sync.Mutex
	summaries []models.SessionSummary
	err       error
}

func (r *recordingSink) ArchiveSession(_ context.Context, s models.SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.summaries = append(r.summaries, s)
	return nil
}

func newAggregator(t *testing.T, kv kvstore.Store, opts ...Option) (*Aggregator, *SnapshotFile) {
	t.Helper()
	file := NewSnapshotFile(filepath.Join(t.TempDir(), "data", "stats.json"))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(kv, file, opts...), file
}

func TestSnapshotFile_LoadMissing(t *testing.T) {
	file := NewSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, models.StatsSnapshot{}, snap)
}

func TestSnapshotFile_SaveLoad(t *testing.T) {
	file := NewSnapshotFile(filepath.Join(t.TempDir(), "nested", "stats.json"))
	want := models.StatsSnapshot{
		TotalSessions:     12,
		TotalParticipants: 40,
		LastUpdated:       testNow,
		StarsCount:        7,
		DailyStats:        &models.DailyStats{Date: "2025-03-14"},
	}
	require.NoError(t, file.Save(want))

	got, err := file.Load()
	require.NoError(t, err)
	want.DailyStats = nil
	assert.Equal(t, want.TotalSessions, got.TotalSessions)
	assert.Equal(t, want.TotalParticipants, got.TotalParticipants)
	assert.Equal(t, want.StarsCount, got.StarsCount)
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	assert.Nil(t, got.DailyStats)

	entries, err := os.ReadDir(filepath.Dir(file.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSnapshotFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewSnapshotFile(path).Load()
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	older := testNow.Add(-time.Hour)
	live := models.StatsSnapshot{TotalSessions: 3, TotalParticipants: 50, LastUpdated: testNow, ArchivedSessions: 1}
	file := models.StatsSnapshot{TotalSessions: 10, TotalParticipants: 20, LastUpdated: older, StarsCount: 4}

	merged := Merge(live, file)
	assert.Equal(t, int64(10), merged.TotalSessions)
	assert.Equal(t, int64(50), merged.TotalParticipants)
	assert.Equal(t, int64(4), merged.StarsCount)
	assert.Equal(t, int64(1), merged.ArchivedSessions)
	assert.True(t, merged.LastUpdated.Equal(testNow))

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, merged, Merge(merged, file))
		assert.Equal(t, merged, Merge(merged, merged))
	})

	t.Run("never below either side", func(t *testing.T) {
		for _, side := range []models.StatsSnapshot{live, file} {
			assert.False(t, advances(side, merged))
		}
	})
}

func TestAggregator_InitializeSeedsFromFile(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	agg, file := newAggregator(t, kv)
	require.NoError(t, file.Save(models.StatsSnapshot{TotalSessions: 100, TotalParticipants: 900, LastUpdated: testNow}))

	require.NoError(t, agg.Initialize(ctx))
	require.NoError(t, agg.Increment(ctx, KindSession))

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), got.TotalSessions)
	assert.Equal(t, int64(900), got.TotalParticipants)

	// A second Initialize must not reset live counters.
	require.NoError(t, agg.Initialize(ctx))
	got, err = agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), got.TotalSessions)
}

func TestAggregator_Increment(t *testing.T) {
	ctx := context.Background()
	agg, _ := newAggregator(t, kvstore.NewMemoryStore())

	require.NoError(t, agg.Increment(ctx, KindSession))
	require.NoError(t, agg.Increment(ctx, KindParticipant))
	require.NoError(t, agg.Increment(ctx, KindParticipant))
	assert.ErrorIs(t, agg.Increment(ctx, Kind("bogus")), ErrUnknownKind)

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalSessions)
	assert.Equal(t, int64(2), got.TotalParticipants)
	assert.True(t, got.LastUpdated.Equal(testNow))
}

func TestAggregator_GetStatsFallsBackToFile(t *testing.T) {
	ctx := context.Background()
	agg, file := newAggregator(t, downStore{Store: kvstore.NewMemoryStore()}, WithStars(fixedStars(42)))
	require.NoError(t, file.Save(models.StatsSnapshot{TotalSessions: 8, TotalParticipants: 30}))

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.TotalSessions)
	assert.Equal(t, int64(30), got.TotalParticipants)
	assert.Equal(t, int64(42), got.StarsCount)
	assert.Nil(t, got.DailyStats)
}

func TestAggregator_SyncToFileIsMonotonic(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	agg, file := newAggregator(t, kv)
	require.NoError(t, file.Save(models.StatsSnapshot{TotalSessions: 50, TotalParticipants: 5}))

	// A cold live store with smaller counters must not regress the file.
	require.NoError(t, kv.HSet(ctx, statsKey, map[string]string{
		fieldTotalSessions:     "2",
		fieldTotalParticipants: "1",
	}))
	require.NoError(t, agg.SyncToFile(ctx))
	snap, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.TotalSessions)
	assert.Equal(t, int64(5), snap.TotalParticipants)

	// Once live participants pass the file, the merged view is written.
	_, err = kv.HIncrBy(ctx, statsKey, fieldTotalParticipants, 10)
	require.NoError(t, err)
	require.NoError(t, agg.SyncToFile(ctx))
	snap, err = file.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.TotalSessions)
	assert.Equal(t, int64(11), snap.TotalParticipants)
}

func TestAggregator_SyncToFileWithoutLiveCounters(t *testing.T) {
	agg, file := newAggregator(t, kvstore.NewMemoryStore())
	require.NoError(t, agg.SyncToFile(context.Background()))
	_, err := os.Stat(file.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestAggregator_ArchiveOncePerSlug(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	agg, _ := newAggregator(t, kvstore.NewMemoryStore(), WithArchive(sink))

	summary := models.SessionSummary{Slug: "abc", QuestionCount: 4, TotalUpvotes: 9}
	require.NoError(t, agg.Archive(ctx, summary))
	require.NoError(t, agg.Archive(ctx, summary))

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ArchivedSessions)
	assert.Equal(t, int64(4), got.ArchivedQuestions)
	assert.Equal(t, int64(9), got.ArchivedUpvotes)
	assert.Len(t, sink.summaries, 2, "sink sees every attempt and dedupes itself")

	require.NoError(t, agg.Forget(ctx, "abc"))
	require.NoError(t, agg.Archive(ctx, models.SessionSummary{Slug: "def", QuestionCount: 1}))
	got, err = agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ArchivedSessions)
	assert.Equal(t, int64(5), got.ArchivedQuestions)
}

func TestAggregator_ArchiveSinkFailure(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("disk full")}
	agg, _ := newAggregator(t, kvstore.NewMemoryStore(), WithArchive(sink))
	assert.Error(t, agg.Archive(context.Background(), models.SessionSummary{Slug: "x"}))
}

func TestAggregator_ArchiveRetryAfterIncrementFailure(t *testing.T) {
	summary := models.SessionSummary{Slug: "abc", QuestionCount: 3, TotalUpvotes: 5}

	tests := []struct {
		name   string
		failAt int
	}{
		{"first increment", 1},
		{"second increment", 2},
		{"third increment", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := &flakyIncr{Store: kvstore.NewMemoryStore(), fail: map[int]bool{tt.failAt: true}}
			agg, _ := newAggregator(t, kv)

			err := agg.Archive(ctx, summary)
			require.Error(t, err)
			assert.ErrorIs(t, err, kvstore.ErrUnavailable)

			marked, err := kv.SIsMember(ctx, archivedKey, "abc")
			require.NoError(t, err)
			assert.False(t, marked)

			require.NoError(t, agg.Archive(ctx, summary))
			require.NoError(t, agg.Archive(ctx, summary))

			got, err := agg.GetStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.ArchivedSessions)
			assert.Equal(t, int64(3), got.ArchivedQuestions)
			assert.Equal(t, int64(5), got.ArchivedUpvotes)
		})
	}
}

func TestAggregator_ArchiveRollbackFailureKeepsMarker(t *testing.T) {
	ctx := context.Background()
	// The second increment fails and so does reversing the first.
	kv := &flakyIncr{Store: kvstore.NewMemoryStore(), fail: map[int]bool{2: true, 3: true}}
	agg, _ := newAggregator(t, kv)

	err := agg.Archive(ctx, models.SessionSummary{Slug: "abc", QuestionCount: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to roll back archivedSessions")

	marked, err := kv.SIsMember(ctx, archivedKey, "abc")
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestAggregator_RecordDaily(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	agg, file := newAggregator(t, kv)

	require.NoError(t, agg.Increment(ctx, KindSession))
	for i := 0; i < DailyHistory+5; i++ {
		require.NoError(t, agg.RecordDaily(ctx))
	}

	entries, err := kv.LRange(ctx, dailyKey, 0, -1)
	require.NoError(t, err)
	assert.Len(t, entries, DailyHistory)

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.DailyStats)
	assert.Equal(t, "2025-03-14", got.DailyStats.Date)
	assert.Equal(t, int64(1), got.DailyStats.TotalSessions)

	snap, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.TotalSessions)
}

func TestAggregator_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	agg, _ := newAggregator(t, kvstore.NewMemoryStore())

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, agg.Increment(ctx, KindParticipant))
		}()
	}
	wg.Wait()

	got, err := agg.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), got.TotalParticipants)
}
