// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Session visibility modes
const (
	ModeNormal    = "normal"
	ModeSpotlight = "spotlight"
)

// Request types

type CreateSessionRequest struct {
	Title    string `json:"title"`
	ClientID string `json:"clientId"`
}

type SetModeRequest struct {
	Mode     string `json:"mode"`
	ClientID string `json:"clientId"`
}

type CreateQuestionRequest struct {
	SessionSlug string `json:"sessionSlug"`
	Content     string `json:"content"`
	ClientID    string `json:"clientId"`
	Nickname    string `json:"nickname"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type UpvoteRequest struct {
	ClientID string `json:"clientId"`
}

type AnswerRequest struct {
	ClientID string `json:"clientId"`
}

type SpotlightRequest struct {
	ClientID    string `json:"clientId"`
	IsSpotlight bool   `json:"isSpotlight"`
}

// Response types

type GetSessionResponse struct {
	Session   Session    `json:"session"`
	IsOwner   bool       `json:"isOwner"`
	Questions []Question `json:"questions"`
}

type StarsResponse struct {
	Stars int64 `json:"stars"`
}

type ArchiveResponse struct {
	Total    int64            `json:"total"`
	Sessions []SessionSummary `json:"sessions"`
}

// Domain types

type Session struct {
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"createdAt"`
	Mode             string    `json:"mode"`
	CreatorID        string    `json:"-"` // Never expose in JSON
	ParticipantCount int64     `json:"participantCount"`
}

type Question struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"-"` // Never expose in JSON
	AuthorNickname *string   `json:"authorNickname"`
	IsAnonymous    bool      `json:"isAnonymous"`
	IsAnswered     bool      `json:"isAnswered"`
	IsSpotlight    bool      `json:"isSpotlight"`
	UpvoteCount    int64     `json:"upvoteCount"`
	CreatedAt      time.Time `json:"createdAt"`

	// Per-requester view
	HasUpvoted bool `json:"hasUpvoted"`
	IsMine     bool `json:"isMine"`
}

// StatsSnapshot is both the GET /stats payload and the durable stats file format.
type StatsSnapshot struct {
	TotalSessions     int64       `json:"totalSessions"`
	TotalParticipants int64       `json:"totalParticipants"`
	LastUpdated       time.Time   `json:"lastUpdated"`
	StarsCount        int64       `json:"starsCount"`
	ArchivedSessions  int64       `json:"archivedSessions"`
	ArchivedQuestions int64       `json:"archivedQuestions"`
	ArchivedUpvotes   int64       `json:"archivedUpvotes"`
	DailyStats        *DailyStats `json:"dailyStats,omitempty"`
}

type DailyStats struct {
	Date              string    `json:"date"` // YYYY-MM-DD, UTC
	TotalSessions     int64     `json:"totalSessions"`
	TotalParticipants int64     `json:"totalParticipants"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// SessionSummary is what survives of a session once the retention job purges it.
type SessionSummary struct {
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"createdAt"`
	ArchivedAt       time.Time `json:"archivedAt"`
	ParticipantCount int64     `json:"participantCount"`
	QuestionCount    int64     `json:"questionCount"`
	AnsweredCount    int64     `json:"answeredCount"`
	TotalUpvotes     int64     `json:"totalUpvotes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
