// Package history lists past prediction runs from the state store.
package history

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui/templates"
)

const historyLimit = 50

// Handlers serves the run history page.
type Handlers struct {
	store state.Store
	log   *slog.Logger
}

// NewHandlers creates the history feature handlers.
func NewHandlers(store state.Store, log *slog.Logger) *Handlers {
	return &Handlers{store: store, log: log}
}

type pageData struct {
	Runs []*state.RunRecord
}

// Page renders the most recent runs.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(historyLimit)
	if err != nil {
		h.log.Error("failed to list runs", "error", err)
		http.Error(w, "could not load run history", http.StatusInternalServerError)
		return
	}
	templates.Page(w, "history-page", pageData{Runs: runs})
}

// SetupRoutes registers the run history routes.
func SetupRoutes(router chi.Router, store state.Store, log *slog.Logger) {
	handlers := NewHandlers(store, log)
	router.Get("/history", handlers.Page)
}
