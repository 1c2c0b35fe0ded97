package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// HistoryHandler serves recorded price history for matched groups. The hot
// tail comes from the in-memory tracker; older points are read from the
// archive when one is configured.
type HistoryHandler struct {
	history domain.HistoryStore
	archive domain.HistoryArchive
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. archive may be nil when no
// database is configured.
func NewHistoryHandler(history domain.HistoryStore, archive domain.HistoryArchive, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		archive: archive,
		logger:  logHandler(logger, "history"),
	}
}

// historyResponse is the per-group history payload.
type historyResponse struct {
	GroupKey string                                         `json:"group_key"`
	Points   map[domain.Platform][]domain.PriceHistoryPoint `json:"points"`
	Total    int                                            `json:"total"`
}

// GetHistory returns the recent price history for one matched group,
// bucketed by platform. Pass archived=true to read from the archive
// instead of the in-memory tail.
// GET /api/history/{group}?limit=100&archived=true
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	groupKey := pathParam(r, "group")
	if groupKey == "" {
		writeError(w, http.StatusBadRequest, "missing group key")
		return
	}
	opts := parseListOpts(r)

	if r.URL.Query().Get("archived") == "true" {
		if h.archive == nil {
			writeError(w, http.StatusNotImplemented, "history archive not configured")
			return
		}
		points, err := h.archive.ListByGroup(r.Context(), groupKey, opts)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "archive lookup failed",
				slog.String("group_key", groupKey),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to load archived history")
			return
		}
		writeJSON(w, http.StatusOK, bucketPoints(groupKey, points))
		return
	}

	var points []domain.PriceHistoryPoint
	for _, p := range []domain.Platform{domain.PlatformPolymarket, domain.PlatformKalshi, domain.PlatformLimitless} {
		points = append(points, h.history.Tail(groupKey, p, opts.Limit)...)
	}
	writeJSON(w, http.StatusOK, bucketPoints(groupKey, points))
}

func bucketPoints(groupKey string, points []domain.PriceHistoryPoint) historyResponse {
	byPlatform := make(map[domain.Platform][]domain.PriceHistoryPoint)
	for _, p := range points {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}
	return historyResponse{
		GroupKey: groupKey,
		Points:   byPlatform,
		Total:    len(points),
	}
}
