// Package api exposes the simulation engine over HTTP: request validation,
// strategy dispatch, and the JSON wire format for simulation results.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stocksim/sim"
)

// Server hosts the simulation HTTP API.
type Server struct {
	engine     *sim.Engine
	log        *slog.Logger
	httpServer *http.Server
	timeout    time.Duration
}

// NewServer creates a Server around engine, listening on addr. Each request
// is bounded by timeout; zero means no per-request deadline.
func NewServer(addr string, engine *sim.Engine, log *slog.Logger, timeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		engine:  engine,
		log:     log,
		timeout: timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestLog(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until the context is cancelled,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
