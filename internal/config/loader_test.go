package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Projects.SearchDepth)
	assert.Equal(t, 30*time.Second, cfg.Worktree.TTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Sanitize.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: console
projects:
  roots: ["/srv/a", "/srv/b"]
  search_depth: 0
ratelimit:
  max: 5
  window: 1s
  tools:
    create_cr:
      max: 2
      window: 10s
sanitize:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"/srv/a", "/srv/b"}, cfg.Projects.Roots)
	assert.Equal(t, 0, cfg.Projects.SearchDepth)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, WindowConfig{Max: 2, Window: 10 * time.Second}, cfg.RateLimit.Tools["create_cr"])
	assert.False(t, cfg.Sanitize.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Worktree.TTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "ratelimit:\n  max: 5\n")
	t.Setenv("MDT_RATELIMIT_MAX", "9")
	t.Setenv("MDT_WORKTREE_TTL", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.RateLimit.Max)
	assert.Equal(t, 45*time.Second, cfg.Worktree.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "ratelimit:\n  max: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratelimit.max")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ratelimit.global_max", envKey("MDT_RATELIMIT_GLOBAL_MAX"))
	assert.Equal(t, "log.level", envKey("MDT_LOG_LEVEL"))
	assert.Equal(t, "debug", envKey("MDT_DEBUG"))
}

func TestValidate_DisabledRateLimitSkipsWindowChecks(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Max = 0
	assert.NoError(t, cfg.Validate())
}
