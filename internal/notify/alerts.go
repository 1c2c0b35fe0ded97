package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// Event types emitted by the aggregation loop. The configured event
// filter in NewNotifier selects which of these reach operators.
const (
	EventArbitrage       = "arbitrage"
	EventSignificantMove = "significant_move"
	EventError           = "error"
)

// ArbitrageAlert notifies operators of a cross-platform arbitrage window.
func (n *Notifier) ArbitrageAlert(ctx context.Context, c domain.MarketComparison) error {
	message := fmt.Sprintf(
		"%s\nGuaranteed margin: %.2f%%\nBest price %.2f on %s (spread %.2f pp)",
		c.Question, c.ArbitrageProfit, c.BestPrice, c.BestPlatform, c.PriceSpread,
	)
	return n.Notify(ctx, EventArbitrage, "Arbitrage window", message)
}

// MoveAlert notifies operators of a significant price move on one venue.
func (n *Notifier) MoveAlert(ctx context.Context, question string, platform domain.Platform, deltaPP float64) error {
	message := fmt.Sprintf("%s\n%s moved %+.2f pp since last cycle", question, platform, deltaPP)
	return n.Notify(ctx, EventSignificantMove, "Significant price move", message)
}
