// Package main is the entry point for the recipe organizer API server.
//
// The main package stays small. Its job is to:
// 1. Read configuration (flags, YAML file, RECIPE_* env vars)
// 2. Build the logger
// 3. Hand both to internal/server and block until shutdown
//
// Everything else lives in internal/ so it can be tested without a process.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/recipe-organizer/internal/config"
	"github.com/sakif/recipe-organizer/internal/logging"
	"github.com/sakif/recipe-organizer/internal/server"
)

func main() {
	// === 1. FLAGS ===
	// -config is optional. Without it, RECIPE_CONFIG is checked, then
	// defaults + env vars alone are used.
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Logging isn't configured yet, so early failures go through a plain
	// text logger on stderr.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// === 2. CONFIGURATION ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. LOGGING ===
	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		bootLogger.Error("failed to create logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	// server.New validates cfg: a missing or short auth.jwtSecret stops
	// startup here rather than on the first login.
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
