package main

import (
	"net/http"
	"time"

	"manuscript-symbols/cmd/symbolsd/handlers"
	"manuscript-symbols/cmd/symbolsd/middleware"
	"manuscript-symbols/internal/classify"
	"manuscript-symbols/internal/config"
	"manuscript-symbols/internal/job"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/symbol"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// newRouter wires the API routes.
func newRouter(cfg config.Config, logger zerolog.Logger, manager *job.Manager, repo *symbol.Repository, pages *page.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRateLimiter(cfg.HTTP.RateLimitPerSec, cfg.HTTP.RateBurst).Handler)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"symbol-extraction"}`))
	})

	svc := classify.NewService(repo, logger)
	jobsHandler := handlers.NewJobsHandler(manager, logger)
	symbolsHandler := handlers.NewSymbolsHandler(repo, svc, pages, cfg.ImageRoot, logger)
	reportsHandler := handlers.NewReportsHandler(repo, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/extraction/jobs", func(r chi.Router) {
			r.Post("/", jobsHandler.Create)
			r.Get("/", jobsHandler.List)
			r.Get("/{jobId}", jobsHandler.Get)
			r.Post("/{jobId}/cancel", jobsHandler.Cancel)
		})

		r.Get("/pages/{pageId}/symbols", symbolsHandler.ListByPage)

		r.Route("/symbols", func(r chi.Router) {
			r.Post("/", symbolsHandler.Create)
			r.Post("/category:bulk", symbolsHandler.SetCategoryBulk)
			r.Get("/{symbolId}", symbolsHandler.Get)
			r.Get("/{symbolId}/similar", symbolsHandler.ListSimilar)
			r.Post("/{symbolId}/category", symbolsHandler.SetCategory)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/frequency", reportsHandler.Frequency)
			r.Get("/categories", reportsHandler.Categories)
		})
	})

	return r
}
