package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// GetCRTool handles the get_cr MCP tool.
type GetCRTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewGetCRTool creates a GetCRTool.
func NewGetCRTool(keys KeyResolver, store tickets.Store) *GetCRTool {
	return &GetCRTool{keys: keys, store: store}
}

type getCRParams struct {
	keyParams
	Mode tickets.Mode
}

func (getCRParams) ToolName() string { return "get_cr" }

func (t *GetCRTool) Name() string { return "get_cr" }

// Definition returns the MCP tool definition for registration.
func (t *GetCRTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Read a CR. mode=full returns the attributes and the whole markdown body, "+
				"mode=attributes every frontmatter field, mode=metadata only key, title, "+
				"status, type, priority, dates and path.",
		),
		projectOption(),
		keyOption(),
		mcp.WithString("mode",
			mcp.Description("How much of the CR to return."),
			mcp.Enum(enumNames(tickets.Modes)...),
			mcp.DefaultString(string(tickets.ModeFull)),
		),
	)
}

func (t *GetCRTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	mode, err := protocol.Enum(a, "mode", tickets.Modes, tickets.ModeFull)
	if err != nil {
		return nil, err
	}
	return getCRParams{keyParams: kp, Mode: mode}, nil
}

func (t *GetCRTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(getCRParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}
	tk, err := t.store.Get(ctx, proj, key)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 **%s** - %s\n\n", tk.Key, tk.Title)

	switch p.Mode {
	case tickets.ModeMetadata:
		writeMetadata(&b, tk.Metadata())
	case tickets.ModeAttributes:
		writeAttributes(&b, tk.Attributes())
	default:
		writeMetadata(&b, tk.Metadata())
		b.WriteString("\n---\n\n")
		b.WriteString(tk.Body)
	}
	return b.String(), nil
}

func writeMetadata(b *strings.Builder, m tickets.Metadata) {
	fmt.Fprintf(b, "- Status: %s\n", m.Status)
	fmt.Fprintf(b, "- Type: %s\n", m.Type)
	fmt.Fprintf(b, "- Priority: %s\n", orDash(string(m.Priority)))
	fmt.Fprintf(b, "- Created: %s\n", orDash(m.DateCreated))
	fmt.Fprintf(b, "- Last Modified: %s\n", orDash(m.LastModified))
	fmt.Fprintf(b, "- Path: %s\n", m.Path)
}

// attributeOrder lists the known header fields in frontmatter order.
var attributeOrder = []string{
	"code", "title", "status", "type", "priority", "dateCreated", "lastModified",
	"phaseEpic", "assignee", "dependsOn", "blocks", "relatedTickets", "impactAreas",
	"implementationDate", "implementationNotes",
}

// writeAttributes renders known fields in frontmatter order, then any
// unknown fields sorted by name.
func writeAttributes(b *strings.Builder, attrs map[string]any) {
	seen := make(map[string]bool, len(attributeOrder))
	for _, name := range attributeOrder {
		seen[name] = true
		if v, ok := attrs[name]; ok {
			fmt.Fprintf(b, "- %s: %s\n", name, formatValue(v))
		}
	}
	var extra []string
	for name := range attrs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		fmt.Fprintf(b, "- %s: %s\n", name, formatValue(attrs[name]))
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
