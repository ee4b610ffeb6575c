// Package preview serves a directory of rendered dashboards over HTTP until
// its context is cancelled.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/tabula/internal/logging"
	tabulahttp "github.com/aretw0/tabula/pkg/adapters/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultPort is the port used when none is configured.
const DefaultPort = 8000

// ShutdownTimeout bounds the graceful shutdown once the context ends.
const ShutdownTimeout = 5 * time.Second

type Server struct {
	Dir    string
	Port   int
	logger *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server for dir. A port of zero means DefaultPort.
func New(dir string, port int, opts ...Option) *Server {
	if port == 0 {
		port = DefaultPort
	}
	s := &Server{Dir: dir, Port: port, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler serves the files under Dir.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tabulahttp.RequestLogger(s.logger))
	r.Use(middleware.NoCache)
	r.Handle("/*", http.FileServer(http.Dir(s.Dir)))
	return r
}

// ListenAndServe listens on Port on all interfaces.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done and then shuts down gracefully.
// A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview listening", "addr", ln.Addr().String(), "dir", s.Dir)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("preview: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("preview shutdown: %w", err)
	}
	s.logger.Info("preview stopped")
	return nil
}
