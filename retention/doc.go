// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package retention purges sessions older than a fixed window.
//
// Each expired session is summarized and archived through the stats
// aggregator first, then deleted leaf to root. A session that fails is
// logged and left for the next sweep; the rest of the sweep continues.
// After the sweep, keys stranded by writes that raced a deletion are
// removed and the stats file is synced.
package retention
