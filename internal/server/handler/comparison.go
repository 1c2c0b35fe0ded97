package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketagg/internal/aggregator"
	"github.com/alanyoungcy/marketagg/internal/domain"
)

// ComparisonSource is the read surface the comparison handler needs from
// the aggregator.
type ComparisonSource interface {
	Comparisons(filter aggregator.ComparisonFilter) []domain.MarketComparison
	Arbitrage() []domain.MarketComparison
}

// ComparisonHandler serves the cross-platform comparison endpoints.
type ComparisonHandler struct {
	comparisons ComparisonSource
	logger      *slog.Logger
}

// NewComparisonHandler creates a ComparisonHandler.
func NewComparisonHandler(comparisons ComparisonSource, logger *slog.Logger) *ComparisonHandler {
	return &ComparisonHandler{
		comparisons: comparisons,
		logger:      logHandler(logger, "comparisons"),
	}
}

// listComparisonsResponse wraps the list endpoint output with metadata.
type listComparisonsResponse struct {
	Comparisons []domain.MarketComparison `json:"comparisons"`
	Total       int                       `json:"total"`
}

// ListComparisons returns the latest cycle's comparisons, optionally
// filtered by minimum spread.
// GET /api/comparisons?min_spread=2.5
func (h *ComparisonHandler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	filter := aggregator.ComparisonFilter{
		MinSpread: parseFloat(r, "min_spread", 0),
	}

	comparisons := h.comparisons.Comparisons(filter)
	writeJSON(w, http.StatusOK, listComparisonsResponse{
		Comparisons: comparisons,
		Total:       len(comparisons),
	})
}

// ListArbitrage returns only the comparisons with a live arbitrage window.
// GET /api/arbitrage
func (h *ComparisonHandler) ListArbitrage(w http.ResponseWriter, r *http.Request) {
	opportunities := h.comparisons.Arbitrage()
	writeJSON(w, http.StatusOK, listComparisonsResponse{
		Comparisons: opportunities,
		Total:       len(opportunities),
	})
}
