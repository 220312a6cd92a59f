package results

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/job"
)

// SetupRoutes registers the results page and its interaction endpoints.
func SetupRoutes(router chi.Router, manager *job.Manager, log *slog.Logger) {
	handlers := NewHandlers(manager, log)

	router.Route("/results/{id}", func(r chi.Router) {
		r.Get("/", handlers.Page)
		r.Get("/graph.svg", handlers.SVG)
		r.Get("/table.csv", handlers.CSV)
		r.Get("/table.xlsx", handlers.XLSX)
	})

	router.Route("/api/results/{id}", func(r chi.Router) {
		r.Get("/updates", handlers.Updates)
		r.Post("/zoom", handlers.Zoom)
		r.Post("/zoomout", handlers.ZoomOut)
		r.Post("/click", handlers.Click)
		r.Post("/settings", handlers.Settings)
		r.Post("/series", handlers.ToggleSeries)
		r.Post("/filter", handlers.Filter)
		r.Post("/filter/clear", handlers.FilterClear)
		r.Post("/teardown", handlers.Teardown)
	})
}
