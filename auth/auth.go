// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

const (
	// SlugLength is the number of base62 characters in a session slug (~131 bits).
	SlugLength = 22
	// MaxClientIDLength bounds the self-reported client token.
	MaxClientIDLength = 128

	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Largest multiple of 62 below 256; bytes at or above it are rejected to avoid modulo bias.
	base62Limit = 248
)

var (
	ErrMissingClientID = errors.New("client ID is required")
	ErrInvalidClientID = errors.New("invalid client ID")
)

// GenerateSlug creates a random, URL-safe session slug
func GenerateSlug() (string, error) {
	return randomBase62(SlugLength)
}

// randomBase62 draws n characters from base62Chars using rejection sampling
func randomBase62(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random slug: %w", err)
		}
		for _, b := range buf {
			if b >= base62Limit {
				continue
			}
			out = append(out, base62Chars[b%62])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// ValidateClientID checks the opaque client token supplied by a caller.
// Tokens are self-reported and carry no identity guarantee.
func ValidateClientID(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrMissingClientID
	}
	if len(clientID) > MaxClientIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidClientID, MaxClientIDLength)
	}
	return nil
}

// IsOwner reports whether clientID is the session creator.
// An empty client never owns anything.
func IsOwner(clientID, creatorID string) bool {
	if clientID == "" || creatorID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(clientID), []byte(creatorID)) == 1
}
