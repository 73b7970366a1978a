package config

import (
	"encoding/json"
	"os"

	"github.com/dkhalperin/flickrmigrate/internal/flagx"
	"github.com/dkhalperin/flickrmigrate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the backoff either as a string like
// "2s" or as integer nanoseconds.
type JsonConfig struct {
	ArchiveGlobs     []string       `json:"archive_globs"`
	DatabasePath     string         `json:"database_path"`
	APIBaseURL       string         `json:"api_base_url"`
	AccessToken      string         `json:"access_token"`
	RetryAttempts    int            `json:"retry_attempts"`
	RetryBackoffBase timex.Duration `json:"retry_backoff_base"`
	CommitBatchSize  int            `json:"commit_batch_size"`
	Verbose          bool           `json:"verbose"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c/-config flags. Absent fields keep their current (default) values.
// Read and unmarshal errors panic; the loader runs before any side effects.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if len(jc.ArchiveGlobs) > 0 {
		cfg.ArchiveGlobs = jc.ArchiveGlobs
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.RetryAttempts > 0 {
		cfg.RetryAttempts = jc.RetryAttempts
	}
	if jc.RetryBackoffBase.Duration > 0 {
		cfg.RetryBackoffBase = jc.RetryBackoffBase.Duration
	}
	if jc.CommitBatchSize > 0 {
		cfg.CommitBatchSize = jc.CommitBatchSize
	}
	if jc.Verbose {
		cfg.Verbose = true
	}
}
