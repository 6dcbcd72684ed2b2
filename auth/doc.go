// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier generation and client token checks.

There is no authentication: clients identify themselves with an opaque,
self-reported token (clientId). This package only validates its shape and
compares it against a session's creator.

# Session Slugs

Slugs are 22 random base62 characters (about 131 bits):

	slug, err := auth.GenerateSlug()

Characters are drawn with rejection sampling so every symbol is equally
likely. Slugs are alphanumeric and safe in URLs without escaping.

# Client Tokens

	if err := auth.ValidateClientID(clientID); err != nil {
		// ErrMissingClientID or ErrInvalidClientID
	}

# Ownership

	owner := auth.IsOwner(clientID, session.CreatorID)

Comparison is constant-time; an empty token never matches.
*/
package auth
