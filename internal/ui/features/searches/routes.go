package searches

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/session"
	"github.com/epitopelab/bindscope/internal/state"
)

// SetupRoutes registers the saved-searches routes.
func SetupRoutes(router chi.Router, store state.Store, sessions session.Provider, log *slog.Logger) {
	handlers := NewHandlers(store, sessions, log)

	router.Get("/searches", handlers.Page)
	router.Get("/searches/{id}/load", handlers.Load)
	router.Post("/api/searches", handlers.Create)
	router.Post("/api/searches/{id}/delete", handlers.Delete)
}
