// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/models"
)

// MaxArchiveLimit caps the page size of GET /stats/archive.
const MaxArchiveLimit = 200

type StatsReader interface {
	GetStats(ctx context.Context) (models.StatsSnapshot, error)
}

type StarReader interface {
	Stars(ctx context.Context) int64
}

type ArchiveReader interface {
	Recent(ctx context.Context, limit int) ([]models.SessionSummary, error)
	Count(ctx context.Context) (int64, error)
}

type StatsHandler struct {
	stats   StatsReader
	stars   StarReader
	archive ArchiveReader
}

// NewStatsHandler builds the public stats endpoints. archive may be nil, in
// which case GET /stats/archive reports 404.
func NewStatsHandler(stats StatsReader, stars StarReader, archive ArchiveReader) *StatsHandler {
	return &StatsHandler{stats: stats, stars: stars, archive: archive}
}

// GetStats handles GET /stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.GetStats(r.Context())
	if err != nil {
		slog.Error("failed to fetch stats", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Error fetching stats")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, snap)
}

// GetStars handles GET /github/stars
// Upstream failures fall back to the last known count, so this never errors.
func (h *StatsHandler) GetStars(w http.ResponseWriter, r *http.Request) {
	var stars int64
	if h.stars != nil {
		stars = h.stars.Stars(r.Context())
	}
	middleware.JSONResponse(w, http.StatusOK, models.StarsResponse{Stars: stars})
}

// GetArchive handles GET /stats/archive?limit=
func (h *StatsHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Archive not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxArchiveLimit)
	}

	sessions, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("failed to query archive", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Error fetching archive")
		return
	}
	total, err := h.archive.Count(r.Context())
	if err != nil {
		slog.Error("failed to count archive", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Error fetching archive")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ArchiveResponse{Total: total, Sessions: sessions})
}
