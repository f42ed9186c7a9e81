package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
)

const (
	// DefaultTTL is how long a worktree listing stays fresh.
	DefaultTTL = 30 * time.Second
	// DefaultQueryTimeout bounds one git query.
	DefaultQueryTimeout = 5 * time.Second

	maxDiagnostics = 50
)

// Options configures a Resolver.
type Options struct {
	TTL          time.Duration
	QueryTimeout time.Duration
	Now          func() time.Time
}

type listing struct {
	worktrees []Worktree
	fetched   time.Time
}

// Resolver caches worktree listings per repository root. It is safe for
// concurrent use; concurrent refreshes of the same root share one query.
type Resolver struct {
	lister  Lister
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
	group   singleflight.Group

	mu          sync.Mutex
	cache       map[string]listing
	diagnostics []string
}

// NewResolver creates a Resolver. A nil lister uses the git CLI.
func NewResolver(lister Lister, opts Options, logger *zap.Logger) *Resolver {
	if lister == nil {
		lister = GitLister{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lister:  lister,
		ttl:     opts.TTL,
		timeout: opts.QueryTimeout,
		now:     opts.Now,
		logger:  logger.Named("worktree"),
		cache:   make(map[string]listing),
	}
}

// ResolvePath returns the tickets directory holding key's content: the
// matching worktree's tickets sub-path, or the main checkout's.
func (r *Resolver) ResolvePath(ctx context.Context, p *project.Project, key string) string {
	if path, ok := r.Lookup(ctx, p, key); ok {
		return filepath.Join(path, p.TicketsPath)
	}
	return p.TicketsDir()
}

// Lookup returns the checkout path of the worktree claiming key. When
// several worktrees claim it, the last listed wins and a diagnostic is
// recorded.
func (r *Resolver) Lookup(ctx context.Context, p *project.Project, key string) (string, bool) {
	if !p.WorktreeEnabled {
		return "", false
	}

	var match, first string
	claims := 0
	for _, wt := range r.Worktrees(ctx, p) {
		if !BranchClaims(wt.Branch, key) {
			continue
		}
		if claims == 0 {
			first = wt.Path
		}
		claims++
		match = wt.Path
	}

	if claims > 1 {
		msg := fmt.Sprintf("%s claimed by %d worktrees; using the last listed (first was %s)",
			key, claims, filepath.Base(first))
		r.recordDiagnostic(msg)
		r.logger.Warn("ambiguous worktree mapping",
			zap.String("key", key), zap.Int("claims", claims), zap.String("selected", match))
	}
	return match, claims > 0
}

// Worktrees returns the usable linked worktrees of p's repository: the
// main checkout, bare entries, detached heads and excluded paths are
// dropped. Query failures yield an empty list.
func (r *Resolver) Worktrees(ctx context.Context, p *project.Project) []Worktree {
	root := filepath.Clean(p.Root)
	var usable []Worktree
	for _, wt := range r.listing(ctx, root) {
		path := filepath.Clean(wt.Path)
		if path == root || wt.Bare || wt.Detached || wt.Branch == "" {
			continue
		}
		if excluded(p, path) {
			continue
		}
		usable = append(usable, wt)
	}
	return usable
}

// Mapping returns branch -> checkout path for p.
func (r *Resolver) Mapping(ctx context.Context, p *project.Project) map[string]string {
	out := make(map[string]string)
	for _, wt := range r.Worktrees(ctx, p) {
		out[wt.Branch] = wt.Path
	}
	return out
}

// Invalidate drops every cached listing.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]listing)
	r.mu.Unlock()
}

// Diagnostics returns the recorded ambiguity reports, oldest first.
func (r *Resolver) Diagnostics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.diagnostics...)
}

func (r *Resolver) recordDiagnostic(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, msg)
	if len(r.diagnostics) > maxDiagnostics {
		r.diagnostics = r.diagnostics[len(r.diagnostics)-maxDiagnostics:]
	}
}

func (r *Resolver) listing(ctx context.Context, root string) []Worktree {
	r.mu.Lock()
	cached, ok := r.cache[root]
	r.mu.Unlock()
	if ok && r.now().Sub(cached.fetched) < r.ttl {
		return cached.worktrees
	}

	v, _, _ := r.group.Do(root, func() (any, error) {
		queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		worktrees, err := r.lister.List(queryCtx, root)
		if err != nil {
			// Fail open: operate against the main checkout.
			r.logger.Warn("worktree query failed", zap.String("root", root), zap.Error(err))
			worktrees = nil
		}

		r.mu.Lock()
		r.cache[root] = listing{worktrees: worktrees, fetched: r.now()}
		r.mu.Unlock()
		return worktrees, nil
	})
	worktrees, _ := v.([]Worktree)
	return worktrees
}

// branchKey matches a ticket key at the start of a branch segment,
// followed by nothing, '-' or '_'.
var branchKey = regexp.MustCompile(`^([A-Za-z]{2,5}-[0-9]+)(?:[-_]|$)`)

// BranchClaims reports whether branch follows the ticket branch naming
// convention for key: its last path segment starts with a key naming the
// same ticket. Case and zero padding are ignored, so feature/mdt-5-login
// claims MDT-005.
func BranchClaims(branch, key string) bool {
	want, err := keys.Parse(key)
	if err != nil {
		return false
	}
	segment := branch
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		segment = branch[i+1:]
	}
	m := branchKey.FindStringSubmatch(segment)
	if m == nil {
		return false
	}
	got, err := keys.Parse(m[1])
	return err == nil && got == want
}

// excluded reports whether a worktree path falls under one of p's
// excluded folders. Paths inside the project root are checked component
// by component; paths outside it by their base name.
func excluded(p *project.Project, path string) bool {
	if len(p.ExcludeFolders) == 0 {
		return false
	}
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p.Excludes(filepath.Base(path))
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if p.Excludes(part) {
			return true
		}
	}
	return false
}
