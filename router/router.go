// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/askany/handlers"
	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/store"
)

// healthTimeout bounds the store ping behind GET /health.
const healthTimeout = 2 * time.Second

// Services are the dependencies the routes are served from. Stars and
// Archive may be nil.
type Services struct {
	Store     kvstore.Store
	Sessions  *store.SessionStore
	Questions *store.QuestionStore
	Stats     handlers.StatsReader
	Stars     handlers.StarReader
	Archive   handlers.ArchiveReader
}

func NewRouter(svc Services) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(svc.Sessions, svc.Questions)
	questionHandler := handlers.NewQuestionHandler(svc.Sessions, svc.Questions)
	statsHandler := handlers.NewStatsHandler(svc.Stats, svc.Stars, svc.Archive)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := svc.Store.Ping(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Sessions
	mux.HandleFunc("POST /sessions", middleware.WithLogging(sessionHandler.CreateSession))
	mux.HandleFunc("GET /sessions/{slug}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("GET /sessions/{slug}/questions", middleware.WithLogging(sessionHandler.ListQuestions))
	mux.HandleFunc("PATCH /sessions/{slug}/mode", middleware.WithLogging(sessionHandler.SetMode))

	// Questions
	mux.HandleFunc("POST /questions", middleware.WithLogging(questionHandler.CreateQuestion))
	mux.HandleFunc("POST /questions/{id}/upvote", middleware.WithLogging(questionHandler.Upvote))
	mux.HandleFunc("PATCH /questions/{id}/answer", middleware.WithLogging(questionHandler.Answer))
	mux.HandleFunc("PATCH /questions/{id}/spotlight", middleware.WithLogging(questionHandler.Spotlight))

	// Stats (public)
	mux.HandleFunc("GET /stats", middleware.WithLogging(statsHandler.GetStats))
	mux.HandleFunc("GET /stats/archive", middleware.WithLogging(statsHandler.GetArchive))
	mux.HandleFunc("GET /github/stars", middleware.WithLogging(statsHandler.GetStars))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("askany API v1"))
	})

	return mux
}
