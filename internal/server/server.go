package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/castlot/internal/application/exchange"
	"github.com/alejandrodnm/castlot/internal/ports"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr       string
	RatePerSec float64 // requests/s por cliente; <= 0 desactiva el límite
	Burst      int
}

// Server exposes the exchange as a JSON API.
type Server struct {
	ex         *exchange.Exchange
	gen        ports.QuestionGenerator
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New registra las rutas y construye la cadena de middleware.
func New(cfg Config, ex *exchange.Exchange, gen ports.QuestionGenerator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{ex: ex, gen: gen, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)

	mux.HandleFunc("GET /api/markets", s.listMarkets)
	mux.HandleFunc("POST /api/markets", s.createMarket)
	mux.HandleFunc("GET /api/markets/{id}", s.getMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", s.quote)
	mux.HandleFunc("POST /api/markets/{id}/trades", s.submitTrade)
	mux.HandleFunc("POST /api/markets/{id}/resolve", s.resolve)
	mux.HandleFunc("GET /api/markets/{id}/comments", s.listComments)
	mux.HandleFunc("POST /api/markets/{id}/comments", s.addComment)

	mux.HandleFunc("POST /api/users/{id}", s.openAccount)
	mux.HandleFunc("GET /api/users/{id}/calibration", s.calibration)
	mux.HandleFunc("GET /api/users/{id}/balance", s.balance)
	mux.HandleFunc("GET /api/leaderboard", s.leaderboard)

	var h http.Handler = mux
	if cfg.RatePerSec > 0 {
		h = rateLimit(newClientLimiter(cfg.RatePerSec, cfg.Burst))(h)
	}
	h = Logging(logger)(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ServeHTTP permite usar el Server directamente con httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start bloquea hasta que el servidor falla o se apaga.
func (s *Server) Start() error {
	s.logger.Info("server: starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown espera a las requests en curso hasta el deadline de ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
