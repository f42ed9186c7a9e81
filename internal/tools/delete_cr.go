package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// DeleteCRTool handles the delete_cr MCP tool.
type DeleteCRTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewDeleteCRTool creates a DeleteCRTool.
func NewDeleteCRTool(keys KeyResolver, store tickets.Store) *DeleteCRTool {
	return &DeleteCRTool{keys: keys, store: store}
}

type deleteCRParams struct {
	keyParams
}

func (deleteCRParams) ToolName() string { return "delete_cr" }

func (t *DeleteCRTool) Name() string { return "delete_cr" }

// Definition returns the MCP tool definition for registration.
func (t *DeleteCRTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription("Delete a CR file. Its number is not reused."),
		mcp.WithDestructiveHintAnnotation(true),
		projectOption(),
		keyOption(),
	)
}

func (t *DeleteCRTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	return deleteCRParams{keyParams: kp}, nil
}

func (t *DeleteCRTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(deleteCRParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}
	tk, err := t.store.Delete(ctx, proj, key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🗑️ Deleted **%s** - %s\n", tk.Key, tk.Title), nil
}
