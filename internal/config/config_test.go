package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkhalperin/flickrmigrate/internal/photos"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"flickrmigrate"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t, "check")

	cfg := LoadConfig()

	assert.Empty(t, cfg.ArchiveGlobs)
	assert.Equal(t, "flickrmigrate.db", cfg.DatabasePath)
	assert.Equal(t, photos.DefaultBaseURL, cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryBackoffBase)
	assert.Equal(t, 32, cfg.CommitBatchSize)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, "migrate",
		"-archive", "/data/a/*.zip",
		"-archive", "/data/b/*.zip",
		"-db", "/tmp/state.db",
		"-api", "http://localhost:8080/v1",
		"-token", "secret",
		"-attempts", "3",
		"-backoff", "250ms",
		"-batch", "16",
		"-v")

	cfg := LoadConfig()

	assert.Equal(t, []string{"/data/a/*.zip", "/data/b/*.zip"}, cfg.ArchiveGlobs)
	assert.Equal(t, "/tmp/state.db", cfg.DatabasePath)
	assert.Equal(t, "http://localhost:8080/v1", cfg.APIBaseURL)
	assert.Equal(t, "secret", cfg.AccessToken)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoffBase)
	assert.Equal(t, 16, cfg.CommitBatchSize)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"archive_globs": ["/exports/*.zip"],
		"database_path": "/var/lib/fm/state.db",
		"retry_backoff_base": "2s",
		"commit_batch_size": 64
	}`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	withArgs(t, "migrate", "-config", path)

	cfg := LoadConfig()

	assert.Equal(t, []string{"/exports/*.zip"}, cfg.ArchiveGlobs)
	assert.Equal(t, "/var/lib/fm/state.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoffBase)
	assert.Equal(t, 64, cfg.CommitBatchSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, photos.DefaultBaseURL, cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.RetryAttempts)
}

func TestLoadConfig_FlagsWinOverJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"database_path": "/from/json.db", "retry_attempts": 9}`), 0o644))

	withArgs(t, "migrate", "-c", path, "-db", "/from/flag.db")

	cfg := LoadConfig()

	assert.Equal(t, "/from/flag.db", cfg.DatabasePath)
	assert.Equal(t, 9, cfg.RetryAttempts)
}
