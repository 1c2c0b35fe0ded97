package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	stats   StatsSource
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(stats StatsSource, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		stats:   stats,
		started: time.Now().UTC(),
		logger:  logger,
	}
}

// HealthCheck responds with liveness info plus a summary of the latest
// aggregation cycle. The status is "degraded" when the last cycle had
// fetch errors.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}

	if h.stats != nil {
		stats := h.stats.Stats()
		resp["last_cycle"] = stats.Cycle
		resp["last_cycle_at"] = stats.StartedAt
		if len(stats.FetchErrors) > 0 {
			resp["status"] = "degraded"
			venues := make([]domain.Platform, 0, len(stats.FetchErrors))
			for p := range stats.FetchErrors {
				venues = append(venues, p)
			}
			slices.Sort(venues)
			resp["failing_venues"] = venues
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
