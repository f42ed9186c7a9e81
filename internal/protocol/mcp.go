package protocol

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Result converts a Response into an MCP tool result. Failures become
// error results whose text is "Error <code>: <message>" and whose
// structured content is the envelope.
func (r *Response) Result() *mcp.CallToolResult {
	if r.Err == nil {
		return mcp.NewToolResultText(r.Data)
	}
	res := mcp.NewToolResultError(fmt.Sprintf("Error %d: %s", r.Err.Code, r.Err.Message))
	res.StructuredContent = r.Envelope()
	return res
}

// Handler returns the mcp-go handler for the named tool.
func (d *Dispatcher) Handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.Dispatch(ctx, name, req.GetArguments()).Result(), nil
	}
}

// Mount registers every tool with s.
func (d *Dispatcher) Mount(s *server.MCPServer) {
	for _, t := range d.Tools() {
		s.AddTool(t.Definition(), d.Handler(t.Name()))
	}
}
