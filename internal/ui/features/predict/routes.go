package predict

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui/notifier"
)

// SetupRoutes registers the prediction form routes.
func SetupRoutes(
	router chi.Router,
	client Submitter,
	manager *job.Manager,
	store state.Store,
	catalog *alleles.Catalog,
	notify *notifier.Notifier,
	log *slog.Logger,
) {
	handlers := NewHandlers(client, manager, store, catalog, notify, log)

	router.Get("/", handlers.FormPage)
	router.Post("/predict", handlers.Submit)
	router.Get("/api/predict/updates", handlers.Updates)
}
