package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mimir-aip/finqa/pkg/scheduler"
	"github.com/mimir-aip/finqa/pkg/session"
)

// Server provides HTTP API endpoints
type Server struct {
	holder    *session.Holder
	scheduler *scheduler.Service
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	port      string
	mux       *http.ServeMux
	http      *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithMetrics serves gatherer on /metrics
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// WithScheduler reports the reload schedule on /api/reload
func WithScheduler(svc *scheduler.Service) Option {
	return func(s *Server) { s.scheduler = svc }
}

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server
func NewServer(holder *session.Holder, port string, opts ...Option) *Server {
	s := &Server{
		holder: holder,
		port:   port,
		mux:    http.NewServeMux(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/api/ask", s.handleAsk)
	s.mux.HandleFunc("/api/entities", s.handleEntities)
	s.mux.HandleFunc("/api/forecasts/", s.handleForecast)
	s.mux.HandleFunc("/api/models", s.handleModels)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/history/", s.handleHistoryItem)
	s.mux.HandleFunc("/api/reload", s.handleReload)
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the HTTP handler with request logging
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once a session is loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	engine := s.holder.Engine()
	if engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"entities": engine.Table().Len(),
	})
}

// handleReload reloads the session (POST) or reports the schedule (GET)
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if err := s.holder.Reload(r.Context()); err != nil {
			http.Error(w, fmt.Sprintf("Failed to reload: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "reloaded",
			"entities": s.holder.Engine().Table().Len(),
		})
	case http.MethodGet:
		if s.scheduler == nil {
			writeJSON(w, http.StatusOK, map[string]string{"schedule": ""})
			return
		}
		writeJSON(w, http.StatusOK, s.scheduler.Status())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
