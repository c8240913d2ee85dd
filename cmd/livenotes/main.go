// Command livenotes is a terminal client for a live transcription backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/jwulff/livenotes/internal/app"
	"github.com/jwulff/livenotes/internal/config"
	"github.com/jwulff/livenotes/internal/db"
	"github.com/jwulff/livenotes/internal/devices"
	"github.com/jwulff/livenotes/internal/export"
	"github.com/jwulff/livenotes/internal/gemini"
	"github.com/jwulff/livenotes/internal/logger"
	"github.com/jwulff/livenotes/internal/lookup"
	"github.com/jwulff/livenotes/internal/recognizer"
	"github.com/jwulff/livenotes/internal/session"
	"github.com/jwulff/livenotes/internal/teardown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "livenotes: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	configPath := flag.String("config", filepath.Join(home, ".livenotes", "config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logg, closer, err := logger.New(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	rc, err := recognizer.New(cfg.Server.BaseURL, cfg.Server.StreamPath, cfg.Server.Timeout)
	if err != nil {
		return err
	}
	logg.Info("starting", "server", cfg.Server.BaseURL, "notes", cfg.Notes.Provider)

	var definer lookup.Definer = rc
	var summarizer teardown.Summarizer = rc
	if cfg.Notes.Provider == config.ProviderGemini {
		gc, err := gemini.New(context.Background(), cfg.GeminiAPIKey(), cfg.Gemini.Model)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		definer, summarizer = gc, gc
	}

	// Lookups work without the cache.
	var store lookup.Store
	if cache, err := db.Open(cfg.Cache.Path); err != nil {
		logg.Warn("definition cache unavailable", "path", cfg.Cache.Path, "err", err)
	} else {
		defer cache.Close()
		store = cache
	}

	lk := lookup.New(definer, store, logg)
	td := teardown.New(export.New(cfg.Export.Dir), summarizer, logg)
	ctrl := session.New(session.Remote{Client: rc}, td, lk, logg)

	p := tea.NewProgram(app.New(ctrl, devices.New(rc, logg), logg), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
