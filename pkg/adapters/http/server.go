// Package http exposes a Tabula engine over HTTP and provides the matching client.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by GET /info.
var Version = "dev"

// MaxCallBytes bounds the size of one /invoke request body.
const MaxCallBytes = 64 << 20

// Server answers engine calls over HTTP.
type Server struct {
	Engine   ports.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves the given registry on /metrics instead of the default one.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for engine.
//
//	POST /invoke   domain.Call in, domain.Envelope out
//	GET  /health   liveness
//	GET  /info     name and version
//	GET  /metrics  Prometheus metrics
func NewHandler(engine ports.Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(enableCORS)

	r.Post("/invoke", s.Invoke)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Invoke handles POST /invoke. Engine failures are reported inside the
// envelope with status 200; only malformed requests get an HTTP error.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request) {
	var call domain.Call
	body := http.MaxBytesReader(w, r.Body, MaxCallBytes)
	if err := json.NewDecoder(body).Decode(&call); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invoke: Invalid request body", "error", err)
		return
	}
	if call.Op == "" {
		http.Error(w, "Missing op", http.StatusBadRequest)
		return
	}

	result, err := s.Engine.Invoke(r.Context(), call)
	env := domain.Envelope{Result: result}
	if err != nil {
		env = domain.Envelope{Error: err.Error()}
		s.logger.Debug("Invoke: engine rejected call", "op", call.Op, "error", err)
	}
	writeJSON(w, s.logger, env)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{
		"app":     "tabula-engine",
		"version": Version,
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

// RequestLogger is chi middleware logging one line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
