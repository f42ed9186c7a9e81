package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
)

// ListProjectsTool handles the list_projects MCP tool.
type ListProjectsTool struct {
	projects  Projects
	worktrees CacheInvalidator
}

// NewListProjectsTool creates a ListProjectsTool. worktrees may be nil.
func NewListProjectsTool(projects Projects, worktrees CacheInvalidator) *ListProjectsTool {
	return &ListProjectsTool{projects: projects, worktrees: worktrees}
}

type listProjectsParams struct {
	Refresh bool
}

func (listProjectsParams) ToolName() string { return "list_projects" }

func (t *ListProjectsTool) Name() string { return "list_projects" }

// Definition returns the MCP tool definition for registration.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"List every configured ticket project with its code, name and tickets path. "+
				"Set refresh to reload project configs from disk and clear the worktree cache.",
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Reload project configuration and worktree mappings before listing."),
		),
	)
}

func (t *ListProjectsTool) Decode(a protocol.Args) (protocol.Params, error) {
	refresh, err := a.Bool("refresh")
	if err != nil {
		return nil, err
	}
	return listProjectsParams{Refresh: refresh}, nil
}

func (t *ListProjectsTool) Execute(_ context.Context, params protocol.Params) (string, error) {
	p := params.(listProjectsParams)
	if p.Refresh {
		if err := t.projects.Reload(); err != nil {
			return "", fmt.Errorf("reloading projects: %w", err)
		}
		if t.worktrees != nil {
			t.worktrees.Invalidate()
		}
	}

	projects := t.projects.List()
	if len(projects) == 0 {
		return "No projects configured. Add a .mdt-config.toml to a project root, " +
			"or register the project in the global registry directory.", nil
	}

	def, hasDefault := t.projects.Default()

	var b strings.Builder
	fmt.Fprintf(&b, "📁 **%d project(s)**\n\n", len(projects))
	for _, proj := range projects {
		marker := ""
		if hasDefault && def.Code == proj.Code {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "- **%s** - %s%s\n", proj.Code, proj.Name, marker)
		fmt.Fprintf(&b, "  - Tickets: %s\n", proj.TicketsPath)
		if proj.Description != "" {
			fmt.Fprintf(&b, "  - Description: %s\n", proj.Description)
		}
	}
	return b.String(), nil
}
