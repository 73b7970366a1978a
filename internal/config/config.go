// Package config holds runtime settings for the migrator CLI and loads them
// from defaults, an optional JSON file and command-line flags, in that
// order; later sources win.
package config

import (
	"time"

	"github.com/dkhalperin/flickrmigrate/internal/photos"
)

// Config holds runtime settings for one run.
//
// Fields:
//   - ArchiveGlobs: filesystem globs locating the export zip containers.
//   - DatabasePath: path of the upload state database (created on first use).
//   - APIBaseURL: remote photo library endpoint (overridable for testing).
//   - AccessToken: opaque bearer capability for the remote service.
//   - RetryAttempts: per-item/per-album attempt ceiling.
//   - RetryBackoffBase: linear backoff base (wait = base * attempt).
//   - CommitBatchSize: state-store mutations per batched commit.
//   - Verbose: switches logging to Debug.
type Config struct {
	ArchiveGlobs     []string
	DatabasePath     string
	APIBaseURL       string
	AccessToken      string
	RetryAttempts    int
	RetryBackoffBase time.Duration
	CommitBatchSize  int
	Verbose          bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "flickrmigrate.db"
	c.APIBaseURL = photos.DefaultBaseURL
	c.RetryAttempts = 5
	c.RetryBackoffBase = time.Second
	c.CommitBatchSize = 32
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
