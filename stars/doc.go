// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package stars caches the star count of the project's GitHub repository.
//
// The count lives in the shared store under "github:stars" with a TTL
// (6 hours by default) and is mirrored without expiry under
// "github:stars:last" so an upstream outage still has something to show.
package stars
