// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import "strings"

const (
	sessionsIndex = "sessions"

	sessionPrefix  = "session:"
	questionPrefix = "question:"

	participantsSuffix = ":participants"
	questionsSuffix    = ":questions"
	upvotesSuffix      = ":upvotes"

	maxKeyPartLength = 64
)

func sessionKey(slug string) string      { return sessionPrefix + slug }
func participantsKey(slug string) string { return sessionPrefix + slug + participantsSuffix }
func questionIndexKey(slug string) string {
	return sessionPrefix + slug + questionsSuffix
}

func questionKey(id string) string { return questionPrefix + id }
func upvotesKey(id string) string  { return questionPrefix + id + upvotesSuffix }

// upvoteRequestKey puts clientID last: id and requestID pass validKeyPart
// and hold no colon, so the key splits back into one triple only.
func upvoteRequestKey(id, clientID, requestID string) string {
	return "upvote:request:" + id + ":" + requestID + ":" + clientID
}

// validKeyPart reports whether s can be embedded in a key without
// colliding with another key's namespace. Slugs and question ids are
// alphanumeric with dashes, so anything else cannot name a record.
func validKeyPart(s string) bool {
	if s == "" || len(s) > maxKeyPartLength {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return false
		}
		return true
	}) < 0
}
