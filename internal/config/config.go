// Package config loads the mdt server configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (MDT_RATELIMIT_MAX, MDT_LOG_LEVEL, ...)
//  2. YAML config file passed with --config
//  3. Defaults from Default()
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markdown-ticket/mdt/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Log       logging.Config  `koanf:"log"`
	Projects  ProjectsConfig  `koanf:"projects"`
	Worktree  WorktreeConfig  `koanf:"worktree"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Sanitize  SanitizeConfig  `koanf:"sanitize"`
	Journal   JournalConfig   `koanf:"journal"`
}

// ProjectsConfig controls project discovery.
type ProjectsConfig struct {
	// Roots are project root directories loaded explicitly.
	Roots []string `koanf:"roots"`
	// RegistryDir holds one *.toml file per globally registered project.
	RegistryDir string `koanf:"registry_dir"`
	// SearchDepth bounds the upward walk for .mdt-config.toml.
	// 0 inspects the working directory only.
	SearchDepth int `koanf:"search_depth"`
}

// WorktreeConfig controls the worktree cache.
type WorktreeConfig struct {
	TTL          time.Duration `koanf:"ttl"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
	Watch        bool          `koanf:"watch"`
}

// WindowConfig is one sliding rate-limit window.
type WindowConfig struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

// RateLimitConfig controls per-tool and global call admission.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Max     int           `koanf:"max"`
	Window  time.Duration `koanf:"window"`
	// GlobalMax caps calls across all tools within Window. 0 disables
	// the global scope.
	GlobalMax int                     `koanf:"global_max"`
	Tools     map[string]WindowConfig `koanf:"tools"`
}

// SanitizeConfig toggles output sanitization.
type SanitizeConfig struct {
	Enabled bool `koanf:"enabled"`
}

// JournalConfig controls the SQLite change journal.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Log: logging.DefaultConfig(),
		Projects: ProjectsConfig{
			RegistryDir: filepath.Join(home, ".config", "markdown-ticket", "projects"),
			SearchDepth: 3,
		},
		Worktree: WorktreeConfig{
			TTL:          30 * time.Second,
			QueryTimeout: 5 * time.Second,
			Watch:        true,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Max:     100,
			Window:  time.Minute,
		},
		Sanitize: SanitizeConfig{Enabled: true},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".config", "markdown-ticket", "journal.db"),
		},
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Projects.SearchDepth < 0 {
		errs = append(errs, fmt.Errorf("projects.search_depth must be >= 0, got %d", c.Projects.SearchDepth))
	}
	if c.Worktree.TTL <= 0 {
		errs = append(errs, fmt.Errorf("worktree.ttl must be positive, got %s", c.Worktree.TTL))
	}
	if c.Worktree.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("worktree.query_timeout must be positive, got %s", c.Worktree.QueryTimeout))
	}
	if c.RateLimit.Enabled {
		if err := validateWindow("ratelimit", WindowConfig{Max: c.RateLimit.Max, Window: c.RateLimit.Window}); err != nil {
			errs = append(errs, err)
		}
		if c.RateLimit.GlobalMax < 0 {
			errs = append(errs, fmt.Errorf("ratelimit.global_max must be >= 0, got %d", c.RateLimit.GlobalMax))
		}
		for name, w := range c.RateLimit.Tools {
			if err := validateWindow("ratelimit.tools."+name, w); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path is required when the journal is enabled"))
	}
	return errors.Join(errs...)
}

func validateWindow(prefix string, w WindowConfig) error {
	if w.Max <= 0 {
		return fmt.Errorf("%s.max must be positive, got %d", prefix, w.Max)
	}
	if w.Window <= 0 {
		return fmt.Errorf("%s.window must be positive, got %s", prefix, w.Window)
	}
	return nil
}
