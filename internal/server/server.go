package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"davlibrary/internal/api"
	"davlibrary/internal/config"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, catalog api.CatalogInterface) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: api.NewHandler(catalog, logger),
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)
		r.Get("/connection/test", s.handler.TestConnection)

		// Live catalog, recomputed from the WebDAV server on every request
		r.Get("/libraries", s.handler.GetLibraries)
		r.Get("/movies", s.handler.GetMovies)
		r.Get("/series", s.handler.GetSeries)
		r.Get("/series/{id}/seasons", s.handler.GetSeasons)
		r.Get("/series/{id}/episodes", s.handler.GetEpisodes)

		r.Get("/items/{itemID}/stream-url", s.handler.GetStreamURL)
		r.Get("/stream/{itemID}", s.handler.Stream)

		// Persisted snapshot
		r.Post("/sync", s.handler.StartSync)
		r.Get("/sync/status", s.handler.GetSyncStatus)
		r.Get("/snapshot/libraries", s.handler.GetSnapshotLibraries)
		r.Get("/snapshot/movies", s.handler.GetSnapshotMovies)
		r.Get("/snapshot/series", s.handler.GetSnapshotSeries)
	})
}

func (s *Server) SetSyncer(syncer api.SyncerInterface) {
	s.handler.SetSyncer(syncer)
}

func (s *Server) SetSnapshots(snapshots api.SnapshotReader) {
	s.handler.SetSnapshots(snapshots)
}

func (s *Server) SetStreamer(streamer api.StreamerInterface) {
	s.handler.SetStreamer(streamer)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
