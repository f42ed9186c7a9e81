// Package project discovers and validates ticket projects.
//
// A project is a directory carrying a .mdt-config.toml marker file that
// names its code, its tickets sub-path and the folders to ignore. The
// Registry loads projects from explicit roots, from a global registry
// directory, and from the caller's working directory.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the marker file identifying a project root.
const ConfigFileName = ".mdt-config.toml"

const (
	defaultTicketsPath = "docs/CRs"
	defaultCounterFile = ".mdt-next"
)

// ErrNotFound is returned when a project code is not registered.
var ErrNotFound = errors.New("project not found")

var codePattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// ValidCode reports whether code is 2-5 uppercase ASCII letters.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Project is one ticket project.
type Project struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Root            string   `json:"-"`
	TicketsPath     string   `json:"ticketsPath"`
	DocumentPaths   []string `json:"documentPaths,omitempty"`
	ExcludeFolders  []string `json:"excludeFolders,omitempty"`
	Repository      string   `json:"repository,omitempty"`
	WorktreeEnabled bool     `json:"worktreeEnabled"`
	StartNumber     int      `json:"startNumber"`
	CounterFile     string   `json:"-"`
}

// TicketsDir returns the absolute tickets directory in the main checkout.
func (p *Project) TicketsDir() string {
	return filepath.Join(p.Root, p.TicketsPath)
}

// CounterPath returns the absolute path of the persisted next-number file.
func (p *Project) CounterPath() string {
	return filepath.Join(p.Root, p.CounterFile)
}

// Excludes reports whether name is one of the project's excluded folders.
func (p *Project) Excludes(name string) bool {
	for _, ex := range p.ExcludeFolders {
		if strings.EqualFold(strings.Trim(ex, "/"), name) {
			return true
		}
	}
	return false
}

// Validate checks the invariants every loaded project must hold.
func (p *Project) Validate() error {
	if !ValidCode(p.Code) {
		return fmt.Errorf("invalid project code %q: must be 2-5 uppercase letters", p.Code)
	}
	if p.Root == "" || !filepath.IsAbs(p.Root) {
		return fmt.Errorf("project %s: root must be an absolute path", p.Code)
	}
	if filepath.IsAbs(p.TicketsPath) || strings.HasPrefix(filepath.Clean(p.TicketsPath), "..") {
		return fmt.Errorf("project %s: tickets path must stay inside the project root", p.Code)
	}
	if p.StartNumber < 1 {
		return fmt.Errorf("project %s: startNumber must be >= 1", p.Code)
	}
	return nil
}

// fileConfig mirrors .mdt-config.toml.
type fileConfig struct {
	Project struct {
		Name        string `toml:"name"`
		Code        string `toml:"code"`
		Path        string `toml:"path"`
		Description string `toml:"description"`
		Repository  string `toml:"repository"`
		StartNumber int    `toml:"startNumber"`
		CounterFile string `toml:"counterFile"`
		Document    struct {
			Paths          []string `toml:"paths"`
			ExcludeFolders []string `toml:"excludeFolders"`
		} `toml:"document"`
		Worktree struct {
			Enabled *bool `toml:"enabled"`
		} `toml:"worktree"`
	} `toml:"project"`
}

// LoadFromRoot reads <root>/.mdt-config.toml.
func LoadFromRoot(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(filepath.Join(abs, ConfigFileName), &fc); err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	p := &Project{
		Code:            strings.ToUpper(strings.TrimSpace(fc.Project.Code)),
		Name:            fc.Project.Name,
		Description:     fc.Project.Description,
		Root:            abs,
		TicketsPath:     fc.Project.Path,
		DocumentPaths:   fc.Project.Document.Paths,
		ExcludeFolders:  fc.Project.Document.ExcludeFolders,
		Repository:      fc.Project.Repository,
		WorktreeEnabled: true,
		StartNumber:     fc.Project.StartNumber,
		CounterFile:     fc.Project.CounterFile,
	}
	if fc.Project.Worktree.Enabled != nil {
		p.WorktreeEnabled = *fc.Project.Worktree.Enabled
	}
	if p.TicketsPath == "" {
		p.TicketsPath = defaultTicketsPath
	}
	if p.CounterFile == "" {
		p.CounterFile = defaultCounterFile
	}
	if p.StartNumber == 0 {
		p.StartNumber = 1
	}
	if p.Name == "" {
		p.Name = filepath.Base(abs)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// registryEntry mirrors one file in the global registry directory.
type registryEntry struct {
	Project struct {
		Path string `toml:"path"`
	} `toml:"project"`
}

// readRegistryEntry returns the project root named by a registry file.
func readRegistryEntry(path string) (string, error) {
	var entry registryEntry
	if _, err := toml.DecodeFile(path, &entry); err != nil {
		return "", err
	}
	if entry.Project.Path == "" {
		return "", errors.New("registry entry has no [project] path")
	}
	return entry.Project.Path, nil
}

// FindMarker walks upward from start looking for ConfigFileName, inspecting
// at most depth parent directories (depth 0 checks start only). It returns
// the directory holding the marker.
func FindMarker(start string, depth int) (string, bool) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for i := 0; i <= depth; i++ {
		if info, err := os.Stat(filepath.Join(current, ConfigFileName)); err == nil && !info.IsDir() {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}
