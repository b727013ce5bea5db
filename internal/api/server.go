package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
	"wschat/internal/config"
	"wschat/internal/ws"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Config           *config.Config
	WebsocketManager *ws.Manager
	logger           *slog.Logger
}

func NewServer(config *config.Config, manager *ws.Manager, logger *slog.Logger) *Server {
	return &Server{
		Config:           config,
		WebsocketManager: manager,
		logger:           logger,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate;")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("Chat server is started.")); err != nil {
		s.logger.Error(fmt.Sprintf("Error writing response: %v", err))
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /chat", s.wsHandler())
	mux.HandleFunc("GET /users", s.usersHandler())
	mux.HandleFunc("GET /health", s.health)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// closes every open chat connection.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    net.JoinHostPort(s.Config.Host, s.Config.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Chat server is running", "host", s.Config.Host, "port", s.Config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("chat server failed to listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by http.Server.
	s.WebsocketManager.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Chat server failed to shutdown", "error", err)
		return fmt.Errorf("shutting down chat server: %w", err)
	}
	return nil
}
