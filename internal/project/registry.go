package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Options controls where the Registry looks for projects.
type Options struct {
	Roots       []string
	RegistryDir string
	WorkDir     string
	SearchDepth int
}

// Registry holds the configured projects. It is safe for concurrent use;
// Reload swaps the whole set atomically.
type Registry struct {
	opts   Options
	logger *zap.Logger

	mu          sync.RWMutex
	projects    map[string]*Project
	defaultCode string
}

// NewRegistry loads every reachable project.
func NewRegistry(opts Options, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{opts: opts, logger: logger.Named("project")}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rediscovers all projects. Invalid entries are skipped with a
// warning; only a failure to determine the working directory is fatal.
func (r *Registry) Reload() error {
	workDir := r.opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		workDir = wd
	}

	projects := make(map[string]*Project)
	add := func(root, source string) *Project {
		p, err := LoadFromRoot(root)
		if err != nil {
			r.logger.Warn("skipping project", zap.String("source", source), zap.Error(err))
			return nil
		}
		if existing, ok := projects[p.Code]; ok {
			if existing.Root != p.Root {
				r.logger.Warn("duplicate project code, keeping first",
					zap.String("code", p.Code), zap.String("source", source))
			}
			return existing
		}
		projects[p.Code] = p
		return p
	}

	defaultCode := ""
	if root, ok := FindMarker(workDir, r.opts.SearchDepth); ok {
		if p := add(root, "working directory"); p != nil {
			defaultCode = p.Code
		}
	}
	for _, root := range r.opts.Roots {
		add(root, "configured root")
	}
	for _, root := range r.registryRoots() {
		add(root, "registry")
	}

	r.mu.Lock()
	r.projects = projects
	r.defaultCode = defaultCode
	r.mu.Unlock()

	r.logger.Debug("projects loaded", zap.Int("count", len(projects)), zap.String("default", defaultCode))
	return nil
}

func (r *Registry) registryRoots() []string {
	if r.opts.RegistryDir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.opts.RegistryDir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("reading project registry", zap.Error(err))
		}
		return nil
	}

	var roots []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		root, err := readRegistryEntry(filepath.Join(r.opts.RegistryDir, entry.Name()))
		if err != nil {
			r.logger.Warn("skipping registry entry", zap.String("entry", entry.Name()), zap.Error(err))
			continue
		}
		roots = append(roots, root)
	}
	return roots
}

// Get returns the project registered under code.
func (r *Registry) Get(code string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return p, nil
}

// List returns every project sorted by code.
func (r *Registry) List() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Default returns the project detected from the working directory, or the
// only configured project when exactly one exists. ok is false in
// multi-project mode.
func (r *Registry) Default() (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultCode != "" {
		return r.projects[r.defaultCode], true
	}
	if len(r.projects) == 1 {
		for _, p := range r.projects {
			return p, true
		}
	}
	return nil, false
}

// Roots returns the root directory of every project.
func (r *Registry) Roots() []string {
	projects := r.List()
	roots := make([]string, 0, len(projects))
	for _, p := range projects {
		roots = append(roots, p.Root)
	}
	return roots
}
