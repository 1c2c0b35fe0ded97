package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// Refresher triggers an out-of-schedule aggregation cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StatsSource exposes the latest cycle statistics.
type StatsSource interface {
	Stats() domain.CycleStats
}

// RefreshHandler serves the manual refresh and stats endpoints.
type RefreshHandler struct {
	refresher Refresher
	stats     StatsSource
	logger    *slog.Logger
}

// NewRefreshHandler creates a RefreshHandler.
func NewRefreshHandler(refresher Refresher, stats StatsSource, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{
		refresher: refresher,
		stats:     stats,
		logger:    logHandler(logger, "refresh"),
	}
}

// Refresh forces an immediate aggregation cycle and waits for it to
// complete. Returns 409 when a cycle is already running.
// POST /api/refresh
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		if errors.Is(err, domain.ErrCycleInFlight) {
			writeError(w, http.StatusConflict, "a cycle is already running")
			return
		}
		h.logger.ErrorContext(r.Context(), "manual refresh failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, h.stats.Stats())
}

// GetStats returns the latest cycle's statistics.
// GET /api/stats
func (h *RefreshHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Stats())
}
