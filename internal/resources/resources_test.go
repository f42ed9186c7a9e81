package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdown-ticket/mdt/internal/journal"
	"github.com/markdown-ticket/mdt/internal/project"
)

type staticProjects []*project.Project

func (s staticProjects) List() []*project.Project { return s }

type fakeJournal struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (f *fakeJournal) Recent(_ context.Context, _ string, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func read(t *testing.T, fn func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	return text
}

func TestProjects_JSONWithoutRoot(t *testing.T) {
	h := NewHandler(staticProjects{{Code: "MDT", Name: "Tickets", Root: "/secret/home/mdt", TicketsPath: "docs/CRs", StartNumber: 1}}, nil)

	res := read(t, h.HandleProjects, ProjectsURI)

	assert.Equal(t, "application/json", res.MIMEType)
	assert.NotContains(t, res.Text, "/secret")

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Text), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "MDT", got[0]["code"])
	assert.Equal(t, "docs/CRs", got[0]["ticketsPath"])
}

func TestProjects_EmptyIsArray(t *testing.T) {
	res := read(t, NewHandler(staticProjects(nil), nil).HandleProjects, ProjectsURI)
	assert.Equal(t, "[]", res.Text)
}

func TestRecentChanges(t *testing.T) {
	j := &fakeJournal{entries: []journal.Entry{{
		ID: "e1", Kind: "created", Project: "MDT", Key: "MDT-001", Title: "One",
		At: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}}}
	h := NewHandler(staticProjects(nil), j)

	res := read(t, h.HandleRecentChanges, RecentChangesURI)

	assert.Equal(t, recentLimit, j.limit)
	assert.Contains(t, res.Text, `"key": "MDT-001"`)
	assert.Contains(t, res.Text, `"at": "2026-03-14T09:30:00Z"`)
}

func TestRecentChanges_Disabled(t *testing.T) {
	res := read(t, NewHandler(staticProjects(nil), nil).HandleRecentChanges, RecentChangesURI)
	assert.Equal(t, "text/plain", res.MIMEType)
	assert.Contains(t, res.Text, "disabled")
}

func TestRecentChanges_Error(t *testing.T) {
	h := NewHandler(staticProjects(nil), &fakeJournal{err: errors.New("locked")})
	req := mcp.ReadResourceRequest{}
	req.Params.URI = RecentChangesURI

	_, err := h.HandleRecentChanges(context.Background(), req)
	require.Error(t, err)
}
