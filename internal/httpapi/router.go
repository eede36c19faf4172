// Package httpapi exposes the integration, sync and history operations over
// a JSON HTTP API for the web client.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/mediatrack/internal/config"
	"github.com/dmitrijs2005/mediatrack/internal/handshake"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/integrations"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/platforms"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/watchsessions"
	"github.com/dmitrijs2005/mediatrack/internal/syncer"
)

// ArtworkStore resolves mirrored artwork keys to short-lived download URLs.
type ArtworkStore interface {
	Enabled() bool
	PresignGet(ctx context.Context, key string) (string, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	cfg          *config.Config
	logger       logging.Logger
	handshake    *handshake.Service
	orchestrator *syncer.Orchestrator
	integrations integrations.Repository
	platforms    platforms.Repository
	sessions     watchsessions.Repository
	artwork      ArtworkStore
}

func NewServer(cfg *config.Config, logger logging.Logger, hs *handshake.Service,
	orchestrator *syncer.Orchestrator, integrationRepo integrations.Repository,
	platformRepo platforms.Repository, sessionRepo watchsessions.Repository,
	artworkStore ArtworkStore) *Server {
	return &Server{
		cfg:          cfg,
		logger:       logger.With("component", "httpapi"),
		handshake:    hs,
		orchestrator: orchestrator,
		integrations: integrationRepo,
		platforms:    platformRepo,
		sessions:     sessionRepo,
		artwork:      artworkStore,
	}
}

// Router builds the route tree. Everything under /api requires a bearer
// token issued by this service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/integrations/plex/connect", s.handlePlexConnect)
		r.Get("/integrations/plex/callback", s.handlePlexCallback)
		r.Delete("/integrations/plex/pending", s.handlePlexCancel)

		r.Get("/integrations", s.handleListIntegrations)
		r.Delete("/integrations/{platform}", s.handleDeleteIntegration)

		r.Post("/sync", s.handleSync)
		r.Get("/history", s.handleHistory)

		r.Get("/artwork/*", s.handleArtwork)
	})

	return r
}
