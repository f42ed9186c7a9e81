package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// UpdateCRStatusTool handles the update_cr_status MCP tool.
type UpdateCRStatusTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewUpdateCRStatusTool creates an UpdateCRStatusTool.
func NewUpdateCRStatusTool(keys KeyResolver, store tickets.Store) *UpdateCRStatusTool {
	return &UpdateCRStatusTool{keys: keys, store: store}
}

type updateCRStatusParams struct {
	keyParams
	Status tickets.Status
}

func (updateCRStatusParams) ToolName() string { return "update_cr_status" }

func (t *UpdateCRStatusTool) Name() string { return "update_cr_status" }

// Definition returns the MCP tool definition for registration.
func (t *UpdateCRStatusTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Set the status of a CR. Any status may follow any other. "+
				"Moving to Implemented records today's date as implementationDate when none is set.",
		),
		projectOption(),
		keyOption(),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Enum(enumNames(tickets.Statuses)...),
		),
	)
}

func (t *UpdateCRStatusTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	if _, err := a.RequiredString("status"); err != nil {
		return nil, err
	}
	status, err := protocol.Enum(a, "status", tickets.Statuses, "")
	if err != nil {
		return nil, err
	}
	return updateCRStatusParams{keyParams: kp, Status: status}, nil
}

func (t *UpdateCRStatusTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(updateCRStatusParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}
	change, err := t.store.UpdateStatus(ctx, proj, key, p.Status)
	if err != nil {
		return "", err
	}

	out := fmt.Sprintf("✅ **%s** status: %s → %s\n", change.Ticket.Key, change.Old, change.New)
	if change.New == tickets.StatusImplemented && change.Ticket.ImplementationDate != "" {
		out += fmt.Sprintf("- Implementation Date: %s\n", change.Ticket.ImplementationDate)
	}
	return out, nil
}
