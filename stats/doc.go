// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package stats maintains the global usage counters.

Counters live in two places: a hash in the shared store ("stats"), bumped on
every session creation and first participant join, and a JSON file on disk
that survives store flushes. Neither side is authoritative on its own; they
are reconciled with Merge, which takes the larger value of every counter and
the later lastUpdated:

	merged := stats.Merge(live, file)

Merge is monotone and idempotent, so SyncToFile can run as often as needed
without ever moving the file backwards.

# Lifecycle

	agg := stats.New(kv, stats.NewSnapshotFile("data/stats.json"),
		stats.WithStars(starCache),
		stats.WithArchive(archiveStore),
	)
	agg.Initialize(ctx)                 // seed live counters from the file
	agg.Increment(ctx, stats.KindSession)
	snap, _ := agg.GetStats(ctx)        // degrades to the file if the store is down
	agg.SyncToFile(ctx)                 // scheduled

# Archiving

Before the retention job deletes a session it calls Archive with the
session's summary. The archived counters are incremented once per slug (the
slug is remembered in "stats:archived" until Forget), so a sweep that fails
half-way and is retried never double counts.

# Daily Snapshots

RecordDaily pushes a dated copy of the counters onto "stats:daily", keeping
the newest DailyHistory entries. GetStats attaches the latest one.
*/
package stats
