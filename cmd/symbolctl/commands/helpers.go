package commands

import (
	"database/sql"
	"fmt"
	"os"

	"manuscript-symbols/internal/config"
	"manuscript-symbols/internal/logging"
	"manuscript-symbols/internal/storage"

	"github.com/rs/zerolog"
)

// env bundles what every subcommand needs: configuration, a logger, and
// the open database.
type env struct {
	cfg config.Config
	log zerolog.Logger
	db  *sql.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.NewWithOutput(level, "console", os.Stderr)

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger, db: db}, nil
}

func (e *env) close() {
	e.db.Close()
}

func formatCategory(category *string) string {
	if category == nil {
		return "-"
	}
	return *category
}
