package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/project"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, project.ConfigFileName),
		[]byte("[project]\nname = \"Server\"\ncode = \"SRV\"\npath = \"docs/CRs\"\n"), 0o644))

	cfg := config.Default()
	cfg.Projects.Roots = []string{root}
	cfg.Projects.RegistryDir = filepath.Join(t.TempDir(), "registry")
	cfg.Projects.SearchDepth = 0
	cfg.Worktree.Watch = false
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	return &cfg
}

func TestNew_RegistersEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, cleanup, err := New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, s)
	tools := s.ListTools()
	assert.Len(t, tools, 10)
	assert.Contains(t, tools, "create_cr")
	assert.Contains(t, tools, "suggest_cr_improvements")
}

func TestNew_JournalFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Journal.Path = filepath.Join(blocker, "journal.db")

	s, cleanup, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, s)
}

func TestNew_RateLimitDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = false
	cfg.Journal.Enabled = false

	_, cleanup, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	cleanup()
}

func TestRateLimitConfig(t *testing.T) {
	got := rateLimitConfig(config.RateLimitConfig{
		Max:       10,
		Window:    time.Minute,
		GlobalMax: 50,
		Tools:     map[string]config.WindowConfig{"create_cr": {Max: 2, Window: time.Second}},
	})

	assert.Equal(t, 10, got.Default.Max)
	assert.Equal(t, 50, got.Global.Max)
	assert.Equal(t, time.Minute, got.Global.Window)
	assert.Equal(t, 2, got.Tools["create_cr"].Max)
}

func TestServerInstructions_NamesDefaultProject(t *testing.T) {
	cfg := testConfig(t)
	registry, err := project.NewRegistry(project.Options{Roots: cfg.Projects.Roots}, nil)
	require.NoError(t, err)

	text := serverInstructions(registry)

	assert.Contains(t, text, "The default project is SRV (Server).")
	assert.Contains(t, text, "manage_cr_sections")
}
