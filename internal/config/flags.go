package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dkhalperin/flickrmigrate/internal/flagx"
)

type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-archive string    glob locating export archives (repeatable)
//	-db string         path to the upload state database
//	-api string        remote service base URL
//	-token string      bearer access token for the remote service
//	-attempts int      retry ceiling per item/album
//	-backoff duration  linear backoff base, e.g. 2s
//	-batch int         state commits are batched every N upserts
//	-v                 verbose (debug) logging
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so the subcommand word passes through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-archive", "-db", "-api", "-token", "-attempts", "-backoff", "-batch", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	var globs stringSlice
	fs.Var(&globs, "archive", "path to archives, globs may be used (repeatable)")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "path to the upload state database")
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "remote service base URL")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "bearer access token")
	fs.IntVar(&cfg.RetryAttempts, "attempts", cfg.RetryAttempts, "retry ceiling per item/album")
	fs.DurationVar(&cfg.RetryBackoffBase, "backoff", cfg.RetryBackoffBase, "linear backoff base")
	fs.IntVar(&cfg.CommitBatchSize, "batch", cfg.CommitBatchSize, "state commit batch size")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if len(globs) > 0 {
		cfg.ArchiveGlobs = globs
	}
}
