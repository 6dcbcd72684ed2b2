// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateSessionRequest: title, clientId
  - SetModeRequest: mode, clientId
  - CreateQuestionRequest: sessionSlug, content, clientId, nickname, isAnonymous
  - UpvoteRequest: clientId
  - AnswerRequest: clientId
  - SpotlightRequest: clientId, isSpotlight

# Response Types

Types for JSON responses:

  - GetSessionResponse: session, isOwner, questions
  - StarsResponse: stars
  - ErrorResponse: error, message

# Domain Types

  - Session: one AMA event; CreatorID is never serialized
  - Question: a submitted question; AuthorID is never serialized,
    HasUpvoted and IsMine are computed for the requesting client
  - StatsSnapshot: global counters, also the on-disk stats file format
  - DailyStats: a once-a-day copy of the counters
  - SessionSummary: archived record of a purged session

# Constants

Session modes:

	ModeNormal    = "normal"
	ModeSpotlight = "spotlight"
*/
package models
