package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// CreateCRTool handles the create_cr MCP tool.
type CreateCRTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewCreateCRTool creates a CreateCRTool.
func NewCreateCRTool(keys KeyResolver, store tickets.Store) *CreateCRTool {
	return &CreateCRTool{keys: keys, store: store}
}

type createCRParams struct {
	Project string
	Input   tickets.CreateInput
}

func (createCRParams) ToolName() string { return "create_cr" }

func (t *CreateCRTool) Name() string { return "create_cr" }

// Definition returns the MCP tool definition for registration.
func (t *CreateCRTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Create a new CR with the next free number in the project. "+
				"Without content the body is generated from the template for the CR type. "+
				"New CRs start in status Proposed.",
		),
		projectOption(),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of change; selects the body template."),
			mcp.Enum(enumNames(tickets.Types)...),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short title; also used for the file name slug."),
		),
		mcp.WithString("priority",
			mcp.Description("Defaults to Medium."),
			mcp.Enum(enumNames(tickets.Priorities)...),
		),
		mcp.WithString("phaseEpic", mcp.Description("Phase or epic this CR belongs to.")),
		mcp.WithString("assignee", mcp.Description("Person responsible for the CR.")),
		mcp.WithString("dependsOn", mcp.Description("Keys this CR depends on, comma separated.")),
		mcp.WithString("blocks", mcp.Description("Keys this CR blocks, comma separated.")),
		mcp.WithString("relatedTickets", mcp.Description("Related keys, comma separated.")),
		mcp.WithArray("impactAreas",
			mcp.Description("Areas of the system the change touches."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("content",
			mcp.Description("Full markdown body. Leave empty to use the type template."),
		),
	)
}

func (t *CreateCRTool) Decode(a protocol.Args) (protocol.Params, error) {
	var p createCRParams
	var err error
	if p.Project, err = decodeProject(a); err != nil {
		return nil, err
	}
	if _, err = a.RequiredString("type"); err != nil {
		return nil, err
	}
	if p.Input.Type, err = protocol.Enum(a, "type", tickets.Types, ""); err != nil {
		return nil, err
	}
	if p.Input.Title, err = a.RequiredString("title"); err != nil {
		return nil, err
	}
	p.Input.Title = strings.TrimSpace(p.Input.Title)
	if p.Input.Priority, err = protocol.Enum(a, "priority", tickets.Priorities, ""); err != nil {
		return nil, err
	}

	text := []struct {
		name string
		dst  *string
	}{
		{"phaseEpic", &p.Input.PhaseEpic},
		{"assignee", &p.Input.Assignee},
		{"dependsOn", &p.Input.DependsOn},
		{"blocks", &p.Input.Blocks},
		{"relatedTickets", &p.Input.RelatedTickets},
		{"content", &p.Input.Content},
	}
	for _, f := range text {
		if *f.dst, err = a.String(f.name); err != nil {
			return nil, err
		}
	}
	if p.Input.ImpactAreas, err = a.StringList("impactAreas"); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *CreateCRTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(createCRParams)
	proj, err := t.keys.ResolveProject(p.Project)
	if err != nil {
		return "", err
	}
	tk, err := t.store.Create(ctx, proj, p.Input)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Created **%s** - %s\n\n", tk.Key, tk.Title)
	fmt.Fprintf(&b, "- Status: %s\n", tk.Status)
	fmt.Fprintf(&b, "- Type: %s\n", tk.Type)
	fmt.Fprintf(&b, "- Priority: %s\n", tk.Priority)
	fmt.Fprintf(&b, "- Path: %s\n", tk.Metadata().Path)
	if sections := tk.Sections(); len(sections) > 0 {
		b.WriteString("\n**Sections:**\n")
		for _, s := range sections {
			fmt.Fprintf(&b, "- %s\n", s.Heading)
		}
	}
	return b.String(), nil
}
