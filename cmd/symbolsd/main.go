// Command symbolsd runs the symbol extraction API service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"manuscript-symbols/internal/config"
	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/extract"
	"manuscript-symbols/internal/job"
	"manuscript-symbols/internal/logging"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/storage"
	"manuscript-symbols/internal/symbol"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SYMBOLS_CONFIG"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logger.Info().
		Str("db", cfg.DatabasePath).
		Str("image_root", cfg.ImageRoot).
		Bool("demo_mode", cfg.DemoMode).
		Msg("starting symbol extraction service")

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	jobStore := job.NewStore(db)

	// Jobs left running by a previous process cannot resume: their worker
	// goroutines are gone. Fail them so their pages are usable again.
	if n, err := jobStore.MarkInterrupted(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("recover interrupted jobs")
	} else if n > 0 {
		logger.Warn().Int64("jobs", n).Msg("marked interrupted jobs as failed")
	}

	pages := page.NewStore(db)
	repo := symbol.NewRepository(db, logger)

	var detector detect.Detector = detect.ContourDetector{}
	if cfg.DemoMode {
		logger.Warn().Msg("demo mode: using simulated detection")
		detector = detect.Simulator{}
	}
	pipeline := extract.NewPipeline(pages, repo, detector, cfg.ImageRoot, logger)
	manager := job.NewManager(jobStore, pipeline, cfg.MaxConcurrentJobs, logger)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      newRouter(cfg, logger, manager, repo, pages),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
		srv.Close()
	}
	if err := manager.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("job shutdown timed out; in-flight work abandoned")
	}

	logger.Info().Msg("service stopped")
}
