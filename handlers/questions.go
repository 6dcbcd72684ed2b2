// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/store"
)

// IdempotencyKeyHeader lets a client retry an upvote without toggling twice.
const IdempotencyKeyHeader = "Idempotency-Key"

type QuestionHandler struct {
	sessions  *store.SessionStore
	questions *store.QuestionStore
}

func NewQuestionHandler(sessions *store.SessionStore, questions *store.QuestionStore) *QuestionHandler {
	return &QuestionHandler{sessions: sessions, questions: questions}
}

// CreateQuestion handles POST /questions
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	q, err := h.questions.CreateQuestion(r.Context(), req.SessionSlug, req.Content, req.ClientID, req.Nickname, req.IsAnonymous)
	if err != nil {
		writeError(w, err, "creating question")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, q)
}

// Upvote handles POST /questions/{id}/upvote
// Each call toggles the caller's vote. Retries carrying the same
// Idempotency-Key replay the first outcome.
func (h *QuestionHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	var req models.UpvoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	requestID := r.Header.Get(IdempotencyKeyHeader)
	q, _, err := h.questions.ToggleUpvote(r.Context(), r.PathValue("id"), req.ClientID, requestID)
	if err != nil {
		writeError(w, err, "upvoting question")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, q)
}

// Answer handles PATCH /questions/{id}/answer (creator only)
func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id := r.PathValue("id")
	if err := h.authorize(r.Context(), id, req.ClientID); err != nil {
		writeError(w, err, "marking question as answered")
		return
	}

	q, err := h.questions.MarkAnswered(r.Context(), id)
	if err != nil {
		writeError(w, err, "marking question as answered")
		return
	}

	h.respond(w, r.Context(), q, req.ClientID)
}

// Spotlight handles PATCH /questions/{id}/spotlight (creator only)
func (h *QuestionHandler) Spotlight(w http.ResponseWriter, r *http.Request) {
	var req models.SpotlightRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id := r.PathValue("id")
	if err := h.authorize(r.Context(), id, req.ClientID); err != nil {
		writeError(w, err, "updating spotlight")
		return
	}

	q, err := h.questions.SetSpotlight(r.Context(), id, req.IsSpotlight)
	if err != nil {
		writeError(w, err, "updating spotlight")
		return
	}

	h.respond(w, r.Context(), q, req.ClientID)
}

// authorize checks that clientID created the session the question belongs to.
func (h *QuestionHandler) authorize(ctx context.Context, id, clientID string) error {
	q, err := h.questions.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	_, err = h.sessions.RequireOwner(ctx, q.SessionID, clientID)
	return err
}

func (h *QuestionHandler) respond(w http.ResponseWriter, ctx context.Context, q models.Question, clientID string) {
	view, err := h.questions.View(ctx, q.ID, clientID)
	if err != nil {
		// The change is already stored; report it without the per-client fields.
		middleware.JSONResponse(w, http.StatusOK, q)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}
