// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/store"
)

type SessionHandler struct {
	sessions  *store.SessionStore
	questions *store.QuestionStore
}

func NewSessionHandler(sessions *store.SessionStore, questions *store.QuestionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions, questions: questions}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req.Title, req.ClientID)
	if err != nil {
		writeError(w, err, "creating session")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, session)
}

// GetSession handles GET /sessions/{slug}?clientId=
// The first visit by a client counts it as a participant.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	clientID := r.URL.Query().Get("clientId")

	session, isOwner, err := h.sessions.GetSession(r.Context(), slug, clientID)
	if err != nil {
		writeError(w, err, "fetching session")
		return
	}

	questions, err := h.questions.ListQuestions(r.Context(), slug, clientID)
	if err != nil {
		writeError(w, err, "fetching session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetSessionResponse{
		Session:   session,
		IsOwner:   isOwner,
		Questions: questions,
	})
}

// ListQuestions handles GET /sessions/{slug}/questions?clientId=
// Polling clients use it to refresh without joining again.
func (h *SessionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questions.ListQuestions(r.Context(), r.PathValue("slug"), r.URL.Query().Get("clientId"))
	if err != nil {
		writeError(w, err, "fetching questions")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, questions)
}

// SetMode handles PATCH /sessions/{slug}/mode (creator only)
func (h *SessionHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	var req models.SetModeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := h.sessions.RequireOwner(r.Context(), slug, req.ClientID); err != nil {
		writeError(w, err, "changing mode")
		return
	}

	session, err := h.sessions.SetMode(r.Context(), slug, req.Mode)
	if err != nil {
		writeError(w, err, "changing mode")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, session)
}
