// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/store"
)

// writeError maps a store error onto an HTTP status. Validation messages
// are safe to echo; everything else gets a generic message.
func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), store.ErrValidation.Error()+": ")
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, store.ErrForbidden):
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the session creator can do that")
	case errors.Is(err, store.ErrStoreUnavailable):
		slog.Error("store unavailable", "action", action, "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		slog.Error("request failed", "action", action, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Error "+action)
	}
}

func notFoundMessage(err error) string {
	if strings.HasPrefix(err.Error(), "question ") {
		return "Question not found"
	}
	return "Session not found"
}
