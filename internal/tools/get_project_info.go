package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// GetProjectInfoTool handles the get_project_info MCP tool.
type GetProjectInfoTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewGetProjectInfoTool creates a GetProjectInfoTool.
func NewGetProjectInfoTool(keys KeyResolver, store tickets.Store) *GetProjectInfoTool {
	return &GetProjectInfoTool{keys: keys, store: store}
}

type getProjectInfoParams struct {
	Project string
}

func (getProjectInfoParams) ToolName() string { return "get_project_info" }

func (t *GetProjectInfoTool) Name() string { return "get_project_info" }

// Definition returns the MCP tool definition for registration.
func (t *GetProjectInfoTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription("Show a project's configuration and how many CRs it holds per status."),
		projectOption(),
	)
}

func (t *GetProjectInfoTool) Decode(a protocol.Args) (protocol.Params, error) {
	p, err := decodeProject(a)
	if err != nil {
		return nil, err
	}
	return getProjectInfoParams{Project: p}, nil
}

func (t *GetProjectInfoTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(getProjectInfoParams)
	proj, err := t.keys.ResolveProject(p.Project)
	if err != nil {
		return "", err
	}
	all, err := t.store.List(ctx, proj, tickets.Filter{})
	if err != nil {
		return "", fmt.Errorf("listing tickets: %w", err)
	}

	counts := make(map[tickets.Status]int)
	for _, tk := range all {
		counts[tk.Status]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📁 **%s** - %s\n\n", proj.Code, proj.Name)
	if proj.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", proj.Description)
	}
	fmt.Fprintf(&b, "- Tickets path: %s\n", proj.TicketsPath)
	fmt.Fprintf(&b, "- Start number: %d\n", proj.StartNumber)
	fmt.Fprintf(&b, "- Worktrees: %s\n", enabled(proj.WorktreeEnabled))
	if proj.Repository != "" {
		fmt.Fprintf(&b, "- Repository: %s\n", proj.Repository)
	}
	if len(proj.DocumentPaths) > 0 {
		fmt.Fprintf(&b, "- Document paths: %s\n", strings.Join(proj.DocumentPaths, ", "))
	}
	fmt.Fprintf(&b, "\n**CRs:** %d total\n", len(all))
	for _, s := range tickets.Statuses {
		if n := counts[s]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", s, n)
		}
	}
	return b.String(), nil
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
