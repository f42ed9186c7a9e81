package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// UpdateCRAttrsTool handles the update_cr_attrs MCP tool.
type UpdateCRAttrsTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewUpdateCRAttrsTool creates an UpdateCRAttrsTool.
func NewUpdateCRAttrsTool(keys KeyResolver, store tickets.Store) *UpdateCRAttrsTool {
	return &UpdateCRAttrsTool{keys: keys, store: store}
}

type updateCRAttrsParams struct {
	keyParams
	Attributes map[string]any
}

func (updateCRAttrsParams) ToolName() string { return "update_cr_attrs" }

func (t *UpdateCRAttrsTool) Name() string { return "update_cr_attrs" }

// Definition returns the MCP tool definition for registration.
func (t *UpdateCRAttrsTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Update frontmatter attributes of a CR. Allowed: "+strings.Join(tickets.AllowedAttrs, ", ")+
				". Title, status and type cannot be changed here; use update_cr_status for status.",
		),
		projectOption(),
		keyOption(),
		mcp.WithObject("attributes",
			mcp.Required(),
			mcp.Description("Attribute names mapped to their new values."),
		),
	)
}

func (t *UpdateCRAttrsTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	attrs, err := a.Object("attributes")
	if err != nil {
		return nil, err
	}
	return updateCRAttrsParams{keyParams: kp, Attributes: attrs}, nil
}

func (t *UpdateCRAttrsTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(updateCRAttrsParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}
	tk, changed, err := t.store.UpdateAttrs(ctx, proj, key, p.Attributes)
	if err != nil {
		return "", err
	}

	attrs := tk.Attributes()
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Updated **%s** - %s\n\n", tk.Key, tk.Title)
	for _, name := range changed {
		value, ok := attrs[name]
		if !ok {
			value = "(cleared)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, formatValue(value))
	}
	return b.String(), nil
}
