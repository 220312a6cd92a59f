// Package ui runs the web server for the prediction front end.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/session"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui/features/predict"
	"github.com/epitopelab/bindscope/internal/ui/notifier"
	"github.com/epitopelab/bindscope/internal/ui/router"
)

// Config holds the server dependencies and settings.
type Config struct {
	Client        predict.Submitter
	Manager       *job.Manager
	Store         state.Store
	Catalog       *alleles.Catalog
	Port          int
	CatalogDir    string
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
}

// Server is the web front end.
type Server struct {
	cfg      Config
	notifier *notifier.Notifier
	sessions session.Provider
}

// NewServer creates a server from its dependencies.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:      cfg,
		notifier: notifier.New(),
		sessions: session.NewCookieProvider(session.NewCookieStore(cfg.SessionSecret)),
	}
}

// Serve starts the HTTP server and blocks until ctx is cancelled. When
// catalog watching is enabled, catalog changes are broadcast to open
// prediction forms.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.cfg.Logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	router.SetupRoutes(r, router.Deps{
		Client:   s.cfg.Client,
		Manager:  s.cfg.Manager,
		Store:    s.cfg.Store,
		Catalog:  s.cfg.Catalog,
		Sessions: s.sessions,
		Notifier: s.notifier,
		Logger:   s.cfg.Logger,
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.CatalogDir != "" {
		eg.Go(func() error {
			return s.cfg.Catalog.Watch(egctx, s.cfg.CatalogDir, s.notifier.Broadcast)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.cfg.Logger.Debug("shutting down server")
		s.cfg.Manager.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
