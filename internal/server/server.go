// Package server exposes the daemon's HTTP + WebSocket API to the browser
// front end.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/termfi/vaultd/internal/server/handler"
	"github.com/termfi/vaultd/internal/server/middleware"
	"github.com/termfi/vaultd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Series        *handler.SeriesHandler
	Positions     *handler.PositionHandler
	Transactions  *handler.TransactionHandler
	Notifications *handler.NotificationHandler
	Actions       *handler.ActionHandler
	Risk          *handler.RiskHandler
}

// Server is the HTTP + WebSocket API server backing the browser front end.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required beyond the shared key).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Series endpoints.
	mux.HandleFunc("GET /api/series", handlers.Series.ListSeries)
	mux.HandleFunc("GET /api/series/{id}", handlers.Series.GetSeries)

	// Position endpoints.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)

	// Transaction history endpoints.
	mux.HandleFunc("GET /api/transactions", handlers.Transactions.ListTransactions)
	mux.HandleFunc("GET /api/transactions/{handle}", handlers.Transactions.GetTransaction)

	// Notification state endpoints.
	mux.HandleFunc("GET /api/notifications", handlers.Notifications.GetState)
	mux.HandleFunc("POST /api/notifications/close", handlers.Notifications.CloseBanner)

	// Action endpoints.
	mux.HandleFunc("GET /api/actions/active", handlers.Actions.ListActive)
	mux.HandleFunc("POST /api/actions/{kind}", handlers.Actions.Invoke)

	// Risk band preview.
	mux.HandleFunc("GET /api/risk", handlers.Risk.Preview)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // actions block until the chain confirms
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
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
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
