// Package router wires the feature routes onto the chi mux.
package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/session"
	"github.com/epitopelab/bindscope/internal/state"
	historyFeature "github.com/epitopelab/bindscope/internal/ui/features/history"
	loginFeature "github.com/epitopelab/bindscope/internal/ui/features/login"
	predictFeature "github.com/epitopelab/bindscope/internal/ui/features/predict"
	resultsFeature "github.com/epitopelab/bindscope/internal/ui/features/results"
	searchesFeature "github.com/epitopelab/bindscope/internal/ui/features/searches"
	"github.com/epitopelab/bindscope/internal/ui/notifier"
	"github.com/epitopelab/bindscope/internal/ui/resources"
)

// Deps carries everything the feature handlers need.
type Deps struct {
	Client   predictFeature.Submitter
	Manager  *job.Manager
	Store    state.Store
	Catalog  *alleles.Catalog
	Sessions session.Provider
	Notifier *notifier.Notifier
	Logger   *slog.Logger
}

// SetupRoutes configures all routes for the web server.
func SetupRoutes(router chi.Router, deps Deps) {
	router.Handle("/static/*", resources.Handler())

	predictFeature.SetupRoutes(router, deps.Client, deps.Manager, deps.Store, deps.Catalog, deps.Notifier, deps.Logger)
	resultsFeature.SetupRoutes(router, deps.Manager, deps.Logger)
	searchesFeature.SetupRoutes(router, deps.Store, deps.Sessions, deps.Logger)
	historyFeature.SetupRoutes(router, deps.Store, deps.Logger)
	loginFeature.SetupRoutes(router, deps.Sessions, deps.Logger)
}
