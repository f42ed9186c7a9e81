// mdt: markdown ticket MCP server
//
// Serves change request tickets stored as markdown files to any MCP
// capable assistant over the stdio transport.
//
// Usage:
//
//	mdt serve [--config mdt.yaml]   # Start MCP server (stdio transport)
//	mdt projects                    # Show the projects the server would load
//	mdt version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/project"
	mdtserver "github.com/markdown-ticket/mdt/internal/server"
)

// configPath is the optional YAML config file.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdt",
	Short: "Markdown ticket MCP server",
	Long: `mdt serves change request tickets (CRs) kept as markdown files in your
repositories to AI assistants over the Model Context Protocol.

Projects are discovered from .mdt-config.toml files: the one nearest the
working directory, any configured roots, and the global registry directory.`,
	Version:       mdtserver.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env MDT_* overrides it)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

Examples:
  # Serve the project in the current directory
  mdt serve

  # Use a config file and debug logging
  MDT_LOG_LEVEL=debug mdt serve --config ~/.config/markdown-ticket/mdt.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects the server would load",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mdt v%s\n", mdtserver.Version)
	},
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, cleanup, err := mdtserver.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	stdio := server.NewStdioServer(s)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("stdio server stopped", zap.Error(err))
		return err
	}
	return nil
}

func runProjects(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	registry, err := project.NewRegistry(project.Options{
		Roots:       cfg.Projects.Roots,
		RegistryDir: cfg.Projects.RegistryDir,
		SearchDepth: cfg.Projects.SearchDepth,
	}, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	projects := registry.List()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}
	def, hasDefault := registry.Default()
	for _, p := range projects {
		marker := ""
		if hasDefault && def.Code == p.Code {
			marker = " (default)"
		}
		fmt.Fprintf(out, "%-6s %s%s\n       %s\n", p.Code, p.Name, marker, p.TicketsDir())
	}
	return nil
}
