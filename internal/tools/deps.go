// Package tools implements the MCP tools of the ticket server.
//
// Each tool lives in its own file and implements protocol.Tool: a static
// definition, a Decode step that turns raw arguments into the tool's own
// params type, and an Execute step that talks to the injected services.
// Tools depend on the small interfaces below, never on concrete stores.
package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/suggest"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// Projects lists and reloads the configured projects.
type Projects interface {
	List() []*project.Project
	Default() (*project.Project, bool)
	Reload() error
}

// KeyResolver turns caller input into projects and canonical keys.
type KeyResolver interface {
	Resolve(rawKey, explicitProject string) (*project.Project, keys.Key, error)
	ResolveProject(code string) (*project.Project, error)
}

// CacheInvalidator drops cached worktree listings.
type CacheInvalidator interface {
	Invalidate()
}

// Analyzer reviews a stored ticket.
type Analyzer interface {
	Analyze(ctx context.Context, p *project.Project, key keys.Key) (*suggest.Report, error)
}

// Deps are the services the tools share. Worktrees may be nil.
type Deps struct {
	Projects  Projects
	Keys      KeyResolver
	Store     tickets.Store
	Worktrees CacheInvalidator
	Analyzer  Analyzer
}

// All returns every tool, ready for protocol.NewDispatcher.
func All(d Deps) []protocol.Tool {
	return []protocol.Tool{
		NewListProjectsTool(d.Projects, d.Worktrees),
		NewGetProjectInfoTool(d.Keys, d.Store),
		NewListCRsTool(d.Keys, d.Store),
		NewCreateCRTool(d.Keys, d.Store),
		NewGetCRTool(d.Keys, d.Store),
		NewUpdateCRAttrsTool(d.Keys, d.Store),
		NewUpdateCRStatusTool(d.Keys, d.Store),
		NewManageCRSectionsTool(d.Keys, d.Store),
		NewDeleteCRTool(d.Keys, d.Store),
		NewSuggestCRImprovementsTool(d.Keys, d.Analyzer),
	}
}

// projectOption is the optional project parameter every ticket tool takes.
func projectOption() mcp.ToolOption {
	return mcp.WithString("project",
		mcp.Description("Project code such as MDT. Optional when the server runs inside a project "+
			"or only one project is configured."),
	)
}

func keyOption() mcp.ToolOption {
	return mcp.WithString("key",
		mcp.Required(),
		mcp.Description("CR key: a full key such as MDT-005, or just the number (5 or 005) "+
			"to use the project parameter or default project."),
	)
}

func enumItems[T ~string](values []T) mcp.PropertyOption {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return mcp.Items(map[string]any{"type": "string", "enum": names})
}

func enumNames[T ~string](values []T) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return names
}

// keyParams is the shared shape of tools addressing one ticket.
type keyParams struct {
	Project string
	Key     string
}

// decodeKey reads project and key and rejects malformed shapes before
// the call reaches the rate limiter. Registry lookups happen in Execute.
func decodeKey(a protocol.Args) (keyParams, error) {
	p, err := decodeProject(a)
	if err != nil {
		return keyParams{}, err
	}
	k, err := a.Key("key")
	if err != nil {
		return keyParams{}, err
	}
	if err := keys.Validate(k); err != nil {
		return keyParams{}, err
	}
	return keyParams{Project: p, Key: k}, nil
}

func decodeProject(a protocol.Args) (string, error) {
	p, err := a.String("project")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p) == "" {
		return "", nil
	}
	if _, err := keys.NormalizeCode(p); err != nil {
		return "", err
	}
	return p, nil
}
