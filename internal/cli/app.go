// Package cli wires the migrator together: archive discovery, the
// reconciliation engine, the state store and the upload pipeline, behind the
// check and migrate commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dkhalperin/flickrmigrate/internal/archive"
	"github.com/dkhalperin/flickrmigrate/internal/config"
	"github.com/dkhalperin/flickrmigrate/internal/containers"
	"github.com/dkhalperin/flickrmigrate/internal/logging"
)

// Exit codes distinguish a completed run from one stopped by the remote
// quota and from an internal failure.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitRateLimited = 3
)

type App struct {
	config *config.Config
	log    logging.Logger
	stdout io.Writer
	runID  string
}

// NewApp wires an App. runID identifies this process run; migrate keys its
// persisted run record on it, matching the run_id attribute of the logger.
func NewApp(cfg *config.Config, log logging.Logger, stdout io.Writer, runID string) *App {
	return &App{config: cfg, log: log, stdout: stdout, runID: runID}
}

// Run dispatches to the requested command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	switch command(args) {
	case "check":
		return a.runCheck(ctx)
	case "migrate":
		return a.runMigrate(ctx)
	default:
		fmt.Fprintln(a.stdout, "usage: flickrmigrate [flags] check|migrate")
		return ExitFailure
	}
}

// command picks the subcommand word out of the raw argument list, skipping
// flags and their values.
func command(args []string) string {
	for _, arg := range args {
		if arg == "check" || arg == "migrate" {
			return arg
		}
	}
	return ""
}

// buildArchive expands the archive globs, opens every container and runs the
// reconciliation engine. The caller owns the returned container handles.
func (a *App) buildArchive(ctx context.Context) (*archive.Archive, error) {
	paths, wrongPaths := ListArchives(a.config.ArchiveGlobs)

	fmt.Fprintf(a.stdout, "Archives globs:\n%s", bulleted(a.config.ArchiveGlobs))
	if len(paths) > 0 {
		fmt.Fprintf(a.stdout, "Archives paths:\n%s", bulleted(paths))
	}
	if len(wrongPaths) > 0 {
		fmt.Fprintf(a.stdout, "Wrong paths:\n%s", bulleted(wrongPaths))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no archives matched %v", a.config.ArchiveGlobs)
	}

	set, err := containers.Open(paths)
	if err != nil {
		return nil, err
	}

	arc, err := archive.Build(ctx, set, a.log)
	if err != nil {
		set.Close()
		return nil, err
	}
	return arc, nil
}

func bulleted(lines []string) string {
	out := ""
	for _, line := range lines {
		out += " * " + line + "\n"
	}
	return out
}
