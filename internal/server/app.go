// Package server initializes and runs the application: it wires the
// repositories, the credential vault, the Plex client, the handshake
// service and the sync orchestrator, then serves the HTTP API alongside the
// background sync scheduler until shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/mediatrack/internal/artwork"
	"github.com/dmitrijs2005/mediatrack/internal/config"
	"github.com/dmitrijs2005/mediatrack/internal/handshake"
	"github.com/dmitrijs2005/mediatrack/internal/httpapi"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
	"github.com/dmitrijs2005/mediatrack/internal/plex"
	"github.com/dmitrijs2005/mediatrack/internal/repositories/repomanager"
	"github.com/dmitrijs2005/mediatrack/internal/syncer"
	"github.com/dmitrijs2005/mediatrack/internal/vault"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	repos        repomanager.RepositoryManager
	api          *httpapi.Server
	scheduler    *Scheduler
	pendingStore *handshake.PendingStore
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	v := vault.New(context.Background(), cfg.VaultSecret, logger)

	plexClient := plex.NewClient(cfg.PlexClientID, cfg.PlexProduct, plex.WithBaseURL(cfg.PlexBaseURL))

	conn := rm.Conn()

	store := handshake.NewPendingStore(cfg.HandshakeTTL)
	hs := handshake.NewService(store, plexClient, v, rm.Integrations(conn), rm.Platforms(conn), cfg, logger)

	artworkStore := artwork.New(cfg, logger)

	orchestrator := syncer.NewOrchestrator(rm.Integrations(conn), logger)
	orchestrator.Register(handshake.PlatformName,
		syncer.NewPlexStrategy(plexClient, v, conn, rm, artworkStore, logger))

	api := httpapi.NewServer(cfg, logger, hs, orchestrator, rm.Integrations(conn), rm.Platforms(conn), rm.WatchSessions(conn), artworkStore)
	scheduler := NewScheduler(orchestrator, store, cfg.SyncCheckInterval, logger)

	return &App{
		config:       cfg,
		logger:       logger,
		repos:        rm,
		api:          api,
		scheduler:    scheduler,
		pendingStore: store,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.api.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
