// Package main is the entry point for the snippets admin server.
//
// main stays small: load configuration, build the logger, make sure the
// database directory exists and hand everything to internal/server.
//
// Configuration comes from the environment (or a .env file next to the
// binary's working directory), for example:
//
//	JWT_SECRET=$(openssl rand -hex 32) ADMIN_USERNAME=admin ADMIN_PASSWORD=... go run ./cmd/server
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/snippets-admin/internal/config"
	"github.com/sakif/snippets-admin/internal/server"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		// No configured logger yet.
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger picks the text or JSON slog handler. JSON is meant for log
// shippers; text is easier to read in a terminal.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
