// Package server provides the HTTP control API of the motion-control service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Control   api.Controller
	Clicks    api.ClickLister
	Hub       *overlay.Hub

	// Status returns the session status text.
	Status func() string

	Logger zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
	log    zerolog.Logger
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
		log:    config.Logger.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.Control != nil {
		h := api.NewControlHandler(s.config.Control, s.config.Status)
		r.Get("/api/control", h.Get)
		r.Put("/api/control", h.Put)
	}

	if s.config.Clicks != nil {
		r.Get("/api/clicks", api.NewClicksHandler(s.config.Clicks).List)
	}

	if s.config.Hub != nil {
		r.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.config.Hub))
		r.Method(http.MethodGet, "/api/pose", NewPoseHandler(s.config.Hub, s.log))
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
