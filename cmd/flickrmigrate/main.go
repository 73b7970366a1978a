package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/dkhalperin/flickrmigrate/internal/buildinfo"
	"github.com/dkhalperin/flickrmigrate/internal/cli"
	"github.com/dkhalperin/flickrmigrate/internal/config"
	"github.com/dkhalperin/flickrmigrate/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	runID := uuid.NewString()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	log := logging.NewSlogLogger(slog.New(handler)).With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := cli.NewApp(cfg, log, os.Stdout, runID)
	code := app.Run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
