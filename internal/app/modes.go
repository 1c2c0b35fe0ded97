package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketagg/internal/aggregator"
	"github.com/alanyoungcy/marketagg/internal/compare"
	"github.com/alanyoungcy/marketagg/internal/match"
	"github.com/alanyoungcy/marketagg/internal/server"
	"github.com/alanyoungcy/marketagg/internal/server/handler"
	"github.com/alanyoungcy/marketagg/internal/server/ws"
)

// buildAggregator assembles the matcher, comparator, and delta tracker and
// wires them into an aggregator together with the optional sinks from deps.
func (a *App) buildAggregator(deps *Dependencies) (*aggregator.Aggregator, *compare.DeltaTracker) {
	matcher := match.New(match.Config{
		TitleScore:     float64(a.cfg.Matcher.TitleScore),
		TokenSortScore: float64(a.cfg.Matcher.TokenSortScore),
		PartialScore:   float64(a.cfg.Matcher.PartialScore),
		TeamScore:      float64(a.cfg.Matcher.TeamScore),
		MinTeamOverlap: a.cfg.Matcher.MinTeamOverlap,
		TimeWindow:     a.cfg.Matcher.TimeWindow.Duration,
	}, a.logger)

	tracker := compare.NewDeltaTracker(compare.NewMemoryHistory(a.cfg.Aggregator.HistoryCapacity))

	agg := aggregator.New(
		aggregator.Config{
			Interval:      a.cfg.Aggregator.Interval.Duration,
			FetchTimeout:  a.cfg.Aggregator.FetchTimeout.Duration,
			LimitPerVenue: a.cfg.Aggregator.LimitPerVenue,
		},
		aggregator.Deps{
			Fetchers:        deps.Fetchers,
			Matcher:         matcher,
			Comparator:      compare.NewComparator(a.logger),
			Tracker:         tracker,
			Mappings:        deps.Mappings,
			Locks:           deps.LockManager,
			MarketCache:     deps.MarketCache,
			ComparisonCache: deps.ComparisonCache,
			Snapshots:       deps.Snapshots,
			Archive:         deps.historyArchive(),
			Bus:             deps.SignalBus,
			Notifier:        deps.Notifier,
		},
		a.logger,
	)
	return agg, tracker
}

// AggregateMode runs the aggregation loop without the HTTP API. Markets are
// still published to the configured caches, stores, bus, and notifiers.
func (a *App) AggregateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting aggregate mode")

	agg, _ := a.buildAggregator(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agg.Run(gctx)
	})

	err := g.Wait()
	a.exportFinal(agg, deps)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeMode starts the HTTP + WebSocket API over the latest aggregation
// state. One cycle runs at startup; after that, cycles run only when
// triggered through POST /api/refresh.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	agg, tracker := a.buildAggregator(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agg.RunManual(gctx)
	})
	a.startHTTPServer(gctx, g, deps, agg, tracker)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// OnceMode runs a single aggregation cycle, exports a snapshot, and exits.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	agg, _ := a.buildAggregator(deps)
	if err := agg.RunOnce(ctx); err != nil {
		return fmt.Errorf("once mode: cycle: %w", err)
	}

	snap, err := agg.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("once mode: snapshot: %w", err)
	}
	if deps.Exporter != nil {
		path, err := deps.Exporter.Export(ctx, snap)
		if err != nil {
			return fmt.Errorf("once mode: export: %w", err)
		}
		a.logger.InfoContext(ctx, "once mode complete",
			slog.String("snapshot_id", snap.ID),
			slog.String("path", path),
		)
		return nil
	}

	a.logger.InfoContext(ctx, "once mode complete",
		slog.String("snapshot_id", snap.ID),
		slog.Int("comparisons", len(snap.Comparisons)),
	)
	return nil
}

// FullMode runs the aggregation loop and the HTTP + WebSocket API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	agg, tracker := a.buildAggregator(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agg.Run(gctx)
	})
	a.startHTTPServer(gctx, g, deps, agg, tracker)

	err := g.Wait()
	a.exportFinal(agg, deps)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startHTTPServer adds the HTTP server (and, when Redis is wired, the
// WebSocket hub) to the given errgroup. The server is shut down gracefully
// when the context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	agg *aggregator.Aggregator,
	tracker *compare.DeltaTracker,
) {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(agg, a.logger),
		Markets:     handler.NewMarketHandler(agg, a.logger),
		Comparisons: handler.NewComparisonHandler(agg, a.logger),
		Refresh:     handler.NewRefreshHandler(agg, agg, a.logger),
		History:     handler.NewHistoryHandler(tracker.History(), deps.historyArchive(), a.logger),
	}
	if deps.Mappings != nil {
		handlers.Mappings = handler.NewMappingHandler(deps.Mappings, a.logger)
	}
	if deps.SignalBus != nil {
		handlers.Events = handler.NewEventHandler(deps.SignalBus, aggregator.StreamComparisons, a.logger)
	}

	var archiver handler.HistoryArchiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	handlers.Export = handler.NewExportHandler(
		agg, deps.Exporter, deps.BlobReader, deps.Snapshots, archiver, a.logger,
	)

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.ApiKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// exportFinal uploads one last snapshot on shutdown so the final cycle's
// output survives the process. Failures are logged, not returned; shutdown
// must not hang on a broken sink.
func (a *App) exportFinal(agg *aggregator.Aggregator, deps *Dependencies) {
	if deps.Exporter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := agg.Snapshot(ctx)
	if err != nil {
		a.logger.Warn("final snapshot failed", slog.String("error", err.Error()))
		return
	}
	if len(snap.Comparisons) == 0 {
		return
	}
	if _, err := deps.Exporter.Export(ctx, snap); err != nil {
		a.logger.Warn("final export failed", slog.String("error", err.Error()))
	}
}
