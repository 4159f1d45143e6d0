package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"
)

// Server runs the sandbox router and hub on one listener.
type Server struct {
	http   *http.Server
	hub    *Hub
	logger *log.Logger
}

// New wires a router with logging, panic recovery and optional bearer auth around the sandbox
// and hub handlers.
func New(addr, token string, sandbox *Sandbox, hub *Hub, logger *log.Logger) *Server {
	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger), RequireBearer(token))
	r.Handler(hub)
	r.Handler(sandbox)

	return &Server{
		http:   &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second},
		hub:    hub,
		logger: logger,
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.logger.Info("sandbox listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return multierr.Combine(s.hub.Close(), s.http.Shutdown(shutdownCtx))
}
