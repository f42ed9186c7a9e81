// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the concrete services from the
// configuration and injects them into the tools, prompts and resources
// that depend on their interfaces. No business logic lives here.
package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/journal"
	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/prompts"
	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/ratelimit"
	"github.com/markdown-ticket/mdt/internal/resources"
	"github.com/markdown-ticket/mdt/internal/suggest"
	"github.com/markdown-ticket/mdt/internal/tickets"
	"github.com/markdown-ticket/mdt/internal/tools"
	"github.com/markdown-ticket/mdt/internal/worktree"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool, prompt and resource
// registered. ctx bounds background work such as the worktree watcher.
//
// The returned cleanup function closes the change journal. It is always
// non-nil and safe to call even when the journal is disabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// --- Projects and key resolution ---

	registry, err := project.NewRegistry(project.Options{
		Roots:       cfg.Projects.Roots,
		RegistryDir: cfg.Projects.RegistryDir,
		SearchDepth: cfg.Projects.SearchDepth,
	}, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("loading projects: %w", err)
	}
	resolver := keys.NewResolver(registry)

	// --- Worktree-aware storage ---

	worktrees := worktree.NewResolver(nil, worktree.Options{
		TTL:          cfg.Worktree.TTL,
		QueryTimeout: cfg.Worktree.QueryTimeout,
	}, logger)
	if cfg.Worktree.Watch {
		if err := worktrees.Watch(ctx, registry.Roots()); err != nil {
			logger.Warn("worktree watcher disabled", zap.Error(err))
		}
	}

	// --- Change journal ---
	//
	// The journal is auxiliary: if it fails to open, every ticket tool
	// still works and only the journal resource reports it as disabled.

	cleanup := noop
	storeOpts := []tickets.Option{
		tickets.WithPathResolver(worktrees),
		tickets.WithLogger(logger),
	}
	var changes *journal.Journal
	if cfg.Journal.Enabled {
		changes, err = journal.Open(cfg.Journal.Path, journal.Options{}, logger)
		if err != nil {
			logger.Warn("change journal disabled", zap.Error(err))
		} else {
			cleanup = func() {
				if err := changes.Close(); err != nil {
					logger.Warn("closing change journal", zap.Error(err))
				}
			}
			storeOpts = append(storeOpts, tickets.WithObserver(journal.NewBridge(changes)))
		}
	}

	store, err := tickets.NewFileStore(storeOpts...)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating ticket store: %w", err)
	}

	// --- Call protocol ---

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(rateLimitConfig(cfg.RateLimit))
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("creating rate limiter: %w", err)
		}
	}

	dispatcher, err := protocol.NewDispatcher(protocol.Options{
		Limiter:  limiter,
		Sanitize: cfg.Sanitize.Enabled,
		Metrics:  protocol.NewMetrics(otel.GetMeterProvider().Meter("github.com/markdown-ticket/mdt"), logger),
		Logger:   logger,
	}, tools.All(tools.Deps{
		Projects:  registry,
		Keys:      resolver,
		Store:     store,
		Worktrees: worktrees,
		Analyzer:  suggest.NewEngine(store),
	})...)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("registering tools: %w", err)
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"mdt",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(registry)),
	)

	dispatcher.Mount(s)

	// --- Register prompts ---

	review := prompts.NewReviewPrompt()
	s.AddPrompt(review.Definition(), review.Handle)

	newCR := prompts.NewNewCRPrompt()
	s.AddPrompt(newCR.Definition(), newCR.Handle)

	// --- Register resources ---

	var recent resources.RecentReader
	if changes != nil {
		recent = changes
	}
	resourceHandler := resources.NewHandler(registry, recent)
	s.AddResource(resourceHandler.ProjectsResource(), resourceHandler.HandleProjects)
	s.AddResource(resourceHandler.RecentChangesResource(), resourceHandler.HandleRecentChanges)

	logger.Info("server ready",
		zap.String("version", Version),
		zap.Int("projects", len(registry.List())),
		zap.Int("tools", len(dispatcher.Tools())),
		zap.Bool("journal", changes != nil),
		zap.Bool("rate_limit", limiter != nil),
	)
	return s, cleanup, nil
}

// noop is the cleanup function used when nothing needs closing.
func noop() {}

func rateLimitConfig(c config.RateLimitConfig) ratelimit.Config {
	out := ratelimit.Config{
		Default: ratelimit.Window{Max: c.Max, Window: c.Window},
		Tools:   make(map[string]ratelimit.Window, len(c.Tools)),
	}
	if c.GlobalMax > 0 {
		out.Global = ratelimit.Window{Max: c.GlobalMax, Window: c.Window}
	}
	for name, w := range c.Tools {
		out.Tools[name] = ratelimit.Window{Max: w.Max, Window: w.Window}
	}
	return out
}

// serverInstructions tells the assistant how to use the tools. When a
// default project is detected it is named so bare numbers work at once.
func serverInstructions(projects tools.Projects) string {
	var b strings.Builder
	b.WriteString(`You have access to mdt, a server for change request tickets (CRs)
stored as markdown files in the project repository.

## KEYS

CRs are addressed by key: PROJECT-NUMBER such as MDT-005. A bare number
(5 or 005) works when the project parameter is given or a default project
is detected.

## WORKFLOW

1. list_projects / get_project_info to orient yourself
2. list_crs with status, type or priority filters to find work
3. get_cr to read a CR; use mode=metadata when you only need the header
4. create_cr for new work; leave content empty to start from the type template
5. manage_cr_sections to edit one section at a time instead of rewriting the file
6. update_cr_status as work progresses; update_cr_attrs for assignee, links and notes
7. suggest_cr_improvements before asking for review

When a branch named after a CR (feature/MDT-005-...) has its own git
worktree, reads and edits of that CR go to the worktree copy.
`)
	if p, ok := projects.Default(); ok {
		fmt.Fprintf(&b, "\nThe default project is %s (%s).\n", p.Code, p.Name)
	}
	return b.String()
}
