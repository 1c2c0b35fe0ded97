package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/server/handler"
	"github.com/alanyoungcy/marketagg/internal/server/middleware"
	"github.com/alanyoungcy/marketagg/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per window per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Mappings, History, Export, and Events may be nil when their backing
// stores are not configured; the corresponding routes are then not
// registered.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Comparisons *handler.ComparisonHandler
	Refresh     *handler.RefreshHandler
	Mappings    *handler.MappingHandler
	History     *handler.HistoryHandler
	Export      *handler.ExportHandler
	Events      *handler.EventHandler
}

// Server is the headless HTTP + WebSocket API for the aggregation service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{platform}/{id}", handlers.Markets.GetMarket)

	// Comparison endpoints.
	mux.HandleFunc("GET /api/comparisons", handlers.Comparisons.ListComparisons)
	mux.HandleFunc("GET /api/arbitrage", handlers.Comparisons.ListArbitrage)

	// Cycle control.
	mux.HandleFunc("POST /api/refresh", handlers.Refresh.Refresh)
	mux.HandleFunc("GET /api/stats", handlers.Refresh.GetStats)

	// Manual mapping endpoints.
	if handlers.Mappings != nil {
		mux.HandleFunc("GET /api/mappings", handlers.Mappings.ListMappings)
		mux.HandleFunc("POST /api/mappings", handlers.Mappings.CreateMapping)
		mux.HandleFunc("GET /api/mappings/{id}", handlers.Mappings.GetMapping)
		mux.HandleFunc("DELETE /api/mappings/{id}", handlers.Mappings.DeleteMapping)
	}

	// Price history.
	if handlers.History != nil {
		mux.HandleFunc("GET /api/history/{group}", handlers.History.GetHistory)
	}

	// Snapshot export.
	if handlers.Export != nil {
		mux.HandleFunc("POST /api/export", handlers.Export.Export)
		mux.HandleFunc("GET /api/exports", handlers.Export.ListExports)
		mux.HandleFunc("GET /api/snapshots", handlers.Export.ListSnapshots)
		mux.HandleFunc("GET /api/snapshots/{id}", handlers.Export.GetSnapshot)
		mux.HandleFunc("POST /api/admin/archive", handlers.Export.ArchiveHistory)
	}

	// Durable event stream backfill.
	if handlers.Events != nil {
		mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is configured.
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
