// Package worktree maps tickets to the git checkout that currently holds
// their content.
//
// A ticket worked on in a parallel checkout (git worktree) lives on a
// branch named after its key, e.g. feature/MDT-095. The Resolver lists
// worktrees once per TTL and points reads and writes for that key at the
// worktree's tickets directory instead of the main checkout.
package worktree

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Worktree is one entry of `git worktree list`.
type Worktree struct {
	Path     string
	Head     string
	Branch   string // short name without refs/heads/
	Bare     bool
	Detached bool
}

// Lister queries the worktrees of the repository at dir.
type Lister interface {
	List(ctx context.Context, dir string) ([]Worktree, error)
}

// GitLister runs the git CLI.
type GitLister struct {
	// Binary defaults to "git".
	Binary string
}

// List runs `git -C dir worktree list --porcelain`.
func (g GitLister) List(ctx context.Context, dir string) ([]Worktree, error) {
	binary := g.Binary
	if binary == "" {
		binary = "git"
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, "-C", dir, "worktree", "list", "--porcelain")
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git worktree list: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return ParsePorcelain(stdout.String()), nil
}

// ParsePorcelain parses `git worktree list --porcelain` output. Records
// are separated by blank lines; the first record is the main checkout.
func ParsePorcelain(out string) []Worktree {
	var result []Worktree
	var current *Worktree

	flush := func() {
		if current != nil && current.Path != "" {
			result = append(result, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		field, value, _ := strings.Cut(line, " ")
		switch field {
		case "worktree":
			flush()
			current = &Worktree{Path: value}
		case "HEAD":
			if current != nil {
				current.Head = value
			}
		case "branch":
			if current != nil {
				current.Branch = strings.TrimPrefix(value, "refs/heads/")
			}
		case "bare":
			if current != nil {
				current.Bare = true
			}
		case "detached":
			if current != nil {
				current.Detached = true
			}
		}
	}
	flush()
	return result
}
