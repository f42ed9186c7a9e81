// Package resources implements read-only MCP resources.
//
// Resources provide data the host can pull into context without a tool
// call. They use mdt:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/journal"
	"github.com/markdown-ticket/mdt/internal/project"
)

const (
	ProjectsURI      = "mdt://projects"
	RecentChangesURI = "mdt://journal/recent"

	// recentLimit is how many journal entries the recent resource shows.
	recentLimit = 50
)

// ProjectLister lists configured projects.
type ProjectLister interface {
	List() []*project.Project
}

// RecentReader reads the newest journal entries.
type RecentReader interface {
	Recent(ctx context.Context, project string, limit int) ([]journal.Entry, error)
}

// Handler serves the resources.
type Handler struct {
	projects ProjectLister
	journal  RecentReader
}

// NewHandler creates a resource Handler. journal may be nil when the
// change journal is disabled.
func NewHandler(projects ProjectLister, journal RecentReader) *Handler {
	return &Handler{projects: projects, journal: journal}
}

// ProjectsResource returns the MCP resource definition for the project list.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		ProjectsURI,
		"Ticket Projects",
		mcp.WithResourceDescription("Every configured ticket project with its code, name and tickets path"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns the configured projects as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projects := h.projects.List()
	if projects == nil {
		projects = []*project.Project{}
	}
	return jsonResource(req.Params.URI, projects)
}

// RecentChangesResource returns the MCP resource definition for the journal.
func (h *Handler) RecentChangesResource() mcp.Resource {
	return mcp.NewResource(
		RecentChangesURI,
		"Recent CR Changes",
		mcp.WithResourceDescription("The newest "+strconv.Itoa(recentLimit)+" CR creations, updates and deletions across all projects"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecentChanges returns the newest journal entries as JSON.
func (h *Handler) HandleRecentChanges(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.journal == nil {
		return errorResource(req.Params.URI, "the change journal is disabled"), nil
	}
	entries, err := h.journal.Recent(ctx, "", recentLimit)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return jsonResource(req.Params.URI, entries)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
