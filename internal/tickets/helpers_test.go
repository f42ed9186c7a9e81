package tickets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// pinTime freezes timeNow for the duration of the test.
func pinTime(t *testing.T) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { timeNow = orig })
}

func newProject(t *testing.T, code string) *project.Project {
	t.Helper()
	return &project.Project{
		Code:            code,
		Name:            "Test",
		Root:            t.TempDir(),
		TicketsPath:     "docs/CRs",
		StartNumber:     1,
		CounterFile:     ".mdt-next",
		WorktreeEnabled: true,
	}
}

func newStore(t *testing.T, opts ...Option) *FileStore {
	t.Helper()
	s, err := NewFileStore(opts...)
	require.NoError(t, err)
	return s
}

func ticketKey(code string, n int) keys.Key {
	return keys.Key{Project: code, Number: n}
}

func writeTicketFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type fixedResolver struct{ dir string }

func (r fixedResolver) ResolvePath(context.Context, *project.Project, string) string { return r.dir }
