// Command bitlog is the CLI front end for the storage engine. It opens the
// engine against the current working directory, dispatches a single
// get/set/rm sub-command, and exits.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/bitlogdb/bitlog/internal/cli"
	"github.com/bitlogdb/bitlog/internal/config"
	"github.com/bitlogdb/bitlog/internal/engine"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to determine working directory: %v", err)
	}

	eng, err := engine.Open(dir, cfg)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("main: error closing engine", "error", err)
		}
	}()

	app := cli.NewHandler(eng).App()
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
