package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// ListCRsTool handles the list_crs MCP tool.
type ListCRsTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewListCRsTool creates a ListCRsTool.
func NewListCRsTool(keys KeyResolver, store tickets.Store) *ListCRsTool {
	return &ListCRsTool{keys: keys, store: store}
}

type listCRsParams struct {
	Project string
	Filter  tickets.Filter
}

func (listCRsParams) ToolName() string { return "list_crs" }

func (t *ListCRsTool) Name() string { return "list_crs" }

// Definition returns the MCP tool definition for registration.
func (t *ListCRsTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"List a project's CRs sorted by number. Filters accept one value or a list; "+
				"a CR must match every given filter and any value within a filter.",
		),
		projectOption(),
		mcp.WithArray("status",
			mcp.Description("Only CRs in these statuses."),
			enumItems(tickets.Statuses),
		),
		mcp.WithArray("type",
			mcp.Description("Only CRs of these types."),
			enumItems(tickets.Types),
		),
		mcp.WithArray("priority",
			mcp.Description("Only CRs with these priorities."),
			enumItems(tickets.Priorities),
		),
	)
}

func (t *ListCRsTool) Decode(a protocol.Args) (protocol.Params, error) {
	var p listCRsParams
	var err error
	if p.Project, err = decodeProject(a); err != nil {
		return nil, err
	}
	if p.Filter.Statuses, err = protocol.EnumList(a, "status", tickets.Statuses); err != nil {
		return nil, err
	}
	if p.Filter.Types, err = protocol.EnumList(a, "type", tickets.Types); err != nil {
		return nil, err
	}
	if p.Filter.Priorities, err = protocol.EnumList(a, "priority", tickets.Priorities); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *ListCRsTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(listCRsParams)
	proj, err := t.keys.ResolveProject(p.Project)
	if err != nil {
		return "", err
	}
	found, err := t.store.List(ctx, proj, p.Filter)
	if err != nil {
		return "", fmt.Errorf("listing tickets: %w", err)
	}

	if len(found) == 0 {
		return fmt.Sprintf("No CRs found in %s matching the given filters.", proj.Code), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%d CR(s) in %s**\n\n", len(found), proj.Code)
	for _, tk := range found {
		fmt.Fprintf(&b, "- **%s** - %s\n", tk.Key, tk.Title)
		fmt.Fprintf(&b, "  - Status: %s | Type: %s | Priority: %s\n", tk.Status, tk.Type, orDash(string(tk.Priority)))
	}
	return b.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
