// Package server exposes the guide over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/config"
	"github.com/voyagen/guidevault/internal/metrics"
	"github.com/voyagen/guidevault/internal/service"
	"github.com/voyagen/guidevault/internal/store"
)

// maxUploadBytes caps a document posted to the import endpoints.
const maxUploadBytes = 256 << 20

// Server holds dependencies for the HTTP API.
type Server struct {
	guide   *service.Guide
	cfg     *config.Config
	metrics *metrics.Metrics
	health  store.Pinger // nil when the backend cannot be pinged
	queue   bool         // remote imports go through the job queue
	mux     *http.ServeMux

	maxUpload int64
}

// Options are the optional collaborators of a Server.
type Options struct {
	Metrics *metrics.Metrics
	Health  store.Pinger
	// QueueImports hands ?url= imports to the background worker instead
	// of running them inside the request.
	QueueImports bool
}

// New creates a Server and registers routes.
func New(g *service.Guide, cfg *config.Config, opts Options) *Server {
	srv := &Server{
		guide:   g,
		cfg:     cfg,
		metrics: opts.Metrics,
		health:  opts.Health,
		queue:   opts.QueueImports,
		mux:     http.NewServeMux(),

		maxUpload: maxUploadBytes,
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Roster
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)

	// Guide
	s.mux.HandleFunc("GET /api/guide", s.handleGuide)
	s.mux.HandleFunc("GET /api/guide.xml", s.handleGuideXML)
	s.mux.HandleFunc("GET /api/guide/now", s.handleWhatsOn)
	s.mux.HandleFunc("GET /api/guide/{id}", s.handleGuideChannel)
	s.mux.HandleFunc("GET /api/guide/{id}/now-next", s.handleNowNext)
	s.mux.HandleFunc("POST /api/guide/{id}/offset", s.handleAdjustOffset)
	s.mux.HandleFunc("POST /api/guide/remap", s.handleRemap)
	s.mux.HandleFunc("POST /api/guide/reload", s.handleReload)

	// Imports
	s.mux.HandleFunc("POST /api/imports/playlist", s.handleImport("playlist"))
	s.mux.HandleFunc("POST /api/imports/guide", s.handleImport("guide"))

	// Reminders
	s.mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	s.mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	s.mux.HandleFunc("DELETE /api/reminders/{id}", s.handleCancelReminder)

	// Metrics and docs
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in its middleware chain.
func (s *Server) Handler() http.Handler {
	return withCORS(withLogging(withMetrics(s.metrics, s)))
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
