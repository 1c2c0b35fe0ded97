package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketagg/internal/aggregator"
	"github.com/alanyoungcy/marketagg/internal/domain"
)

// MarketSource is the read surface the market handler needs from the
// aggregator. It is declared locally so the handler package does not
// depend on the concrete aggregator beyond its filter types.
type MarketSource interface {
	Markets(filter aggregator.MarketFilter) []domain.UnifiedMarket
	Market(ctx context.Context, platform domain.Platform, marketID string) (domain.UnifiedMarket, error)
}

// MarketHandler serves the normalized market endpoints.
type MarketHandler struct {
	markets MarketSource
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given source and logger.
func NewMarketHandler(markets MarketSource, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logHandler(logger, "markets"),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.UnifiedMarket `json:"markets"`
	Total   int                    `json:"total"`
}

// ListMarkets returns the latest cycle's normalized markets, optionally
// filtered by platform and market type.
// GET /api/markets?platform=kalshi&type=sports
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := aggregator.MarketFilter{
		Platform:   domain.Platform(q.Get("platform")),
		MarketType: domain.MarketType(q.Get("type")),
	}
	if filter.Platform != "" && !filter.Platform.Valid() {
		writeError(w, http.StatusBadRequest, "unknown platform "+string(filter.Platform))
		return
	}

	markets := h.markets.Markets(filter)
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   len(markets),
	})
}

// GetMarket returns a single normalized market by platform and ID. The
// source falls through cycle state, cache, and a live platform fetch.
// GET /api/markets/{platform}/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	platform := domain.Platform(pathParam(r, "platform"))
	id := pathParam(r, "id")
	if !platform.Valid() {
		writeError(w, http.StatusBadRequest, "unknown platform "+string(platform))
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.Market(r.Context(), platform, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, m)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "market not found")
	default:
		h.logger.Warn("market lookup failed",
			slog.String("platform", string(platform)),
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "market lookup failed")
	}
}
