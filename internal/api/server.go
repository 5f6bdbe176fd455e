// Package api serves the daemon's local status and preferences endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/genricoloni/tunecord/internal/config"
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 * 1024

// Server exposes read access to the sync state and read/write access to
// the preferences over HTTP.
type Server struct {
	logger *zap.Logger
	addr   string
	tracks domain.TrackReader
	status domain.StatusReader
	prefs  domain.PreferencesStore
	writer domain.PreferencesWriter
	srv    *http.Server
}

// NewServer creates the API server. An empty listen address disables it.
func NewServer(
	logger *zap.Logger,
	cfg *config.AppConfig,
	tracks domain.TrackReader,
	status domain.StatusReader,
	prefs domain.PreferencesStore,
	writer domain.PreferencesWriter,
) *Server {
	return &Server{
		logger: logger,
		addr:   cfg.GetHTTPAddr(),
		tracks: tracks,
		status: status,
		prefs:  prefs,
		writer: writer,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/track", s.handleTrack)
		r.Get("/status", s.handleStatus)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start begins serving in the background
func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		s.logger.Info("Local API disabled")
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Local API stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("Local API listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("API request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", chimiddleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.tracks.CurrentTrack())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.prefs.Snapshot())
}

// handlePutPreferences applies a full or partial update over the current
// preferences.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := s.prefs.Snapshot()

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&prefs); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid preferences body", err)
		return
	}

	if err := s.writer.Save(prefs); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save preferences", err)
		return
	}

	s.respondJSON(w, http.StatusOK, s.prefs.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode API response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	s.logger.Warn(message, zap.Error(err))
	s.respondJSON(w, status, errorResponse{Error: message})
}
