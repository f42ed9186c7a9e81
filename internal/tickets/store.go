package tickets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/templates"
)

const (
	filePerm  = 0o644
	dirPerm   = 0o755
	parseJobs = 8
)

// Store defines ticket persistence. Abstracted for testability.
type Store interface {
	Create(ctx context.Context, p *project.Project, in CreateInput) (*Ticket, error)
	Get(ctx context.Context, p *project.Project, key keys.Key) (*Ticket, error)
	List(ctx context.Context, p *project.Project, f Filter) ([]*Ticket, error)
	UpdateAttrs(ctx context.Context, p *project.Project, key keys.Key, attrs map[string]any) (*Ticket, []string, error)
	UpdateStatus(ctx context.Context, p *project.Project, key keys.Key, status Status) (*StatusChange, error)
	ListSections(ctx context.Context, p *project.Project, key keys.Key) ([]Section, error)
	GetSection(ctx context.Context, p *project.Project, key keys.Key, heading string) (Section, string, error)
	UpdateSection(ctx context.Context, p *project.Project, key keys.Key, heading, content string, mode UpdateMode) (Section, error)
	Delete(ctx context.Context, p *project.Project, key keys.Key) (*Ticket, error)
}

// PathResolver picks the tickets directory holding a key's file.
type PathResolver interface {
	ResolvePath(ctx context.Context, p *project.Project, key string) string
}

type mainCheckout struct{}

func (mainCheckout) ResolvePath(_ context.Context, p *project.Project, _ string) string {
	return p.TicketsDir()
}

// CreateInput carries the fields of a new ticket. Empty optional fields
// are left out of the header.
type CreateInput struct {
	Type           Type
	Title          string
	Priority       Priority
	PhaseEpic      string
	Assignee       string
	DependsOn      string
	Blocks         string
	RelatedTickets string
	ImpactAreas    []string
	// Content replaces the type template when it is not blank.
	Content string
}

// Filter selects tickets for List. Within a field any value matches; an
// empty field matches everything.
type Filter struct {
	Statuses   []Status
	Types      []Type
	Priorities []Priority
}

// Match reports whether t passes every non-empty field of f.
func (f Filter) Match(t *Ticket) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, t.Type) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, t.Priority) {
		return false
	}
	return true
}

// StatusChange is the result of UpdateStatus.
type StatusChange struct {
	Ticket *Ticket
	Old    Status
	New    Status
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	paths     PathResolver
	renderer  *templates.Renderer
	logger    *zap.Logger
	observers []Observer

	numbering keyedMutex // per project code
	files     keyedMutex // per ticket key

	mu   sync.Mutex
	next map[string]int // last handed-out number + 1, per project code
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithPathResolver routes reads and updates through r, typically the
// worktree resolver. Without one every key resolves to the main checkout.
func WithPathResolver(r PathResolver) Option {
	return func(s *FileStore) { s.paths = r }
}

// WithObserver registers an observer for mutation events.
func WithObserver(o Observer) Option {
	return func(s *FileStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore creates a filesystem-backed ticket store.
func NewFileStore(opts ...Option) (*FileStore, error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}
	s := &FileStore{
		paths:    mainCheckout{},
		renderer: renderer,
		logger:   zap.NewNop(),
		next:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("tickets")
	return s, nil
}

// Create writes a new ticket with the next free number of p.
func (s *FileStore) Create(ctx context.Context, p *project.Project, in CreateInput) (*Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required and cannot be blank"}
	}
	if err := ValidateType(in.Type); err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	} else if err := ValidatePriority(priority); err != nil {
		return nil, err
	}

	unlock := s.numbering.Lock(p.Code)
	defer unlock()

	dir := p.TicketsDir()
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating tickets directory: %w", err)
	}

	number, err := s.nextNumber(p, dir)
	if err != nil {
		return nil, err
	}
	key := keys.Format(p.Code, number)

	body := in.Content
	if strings.TrimSpace(body) == "" {
		body, err = s.renderer.ForType(templates.Data{Key: key, Title: title, Type: string(in.Type)})
		if err != nil {
			return nil, err
		}
	}

	now := timestamp()
	t := &Ticket{
		Header: Header{
			Code:           key,
			Title:          title,
			Status:         StatusProposed,
			Type:           in.Type,
			Priority:       priority,
			DateCreated:    now,
			LastModified:   now,
			PhaseEpic:      in.PhaseEpic,
			Assignee:       in.Assignee,
			DependsOn:      in.DependsOn,
			Blocks:         in.Blocks,
			RelatedTickets: in.RelatedTickets,
			ImpactAreas:    in.ImpactAreas,
		},
		Key:     key,
		Number:  number,
		Body:    body,
		Path:    filepath.Join(dir, fileName(key, title)),
		RelPath: filepath.Join(p.TicketsPath, fileName(key, title)),
	}

	if _, err := os.Stat(t.Path); err == nil {
		return nil, fmt.Errorf("ticket file for %s already exists", key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.write(t); err != nil {
		return nil, err
	}
	if err := os.Chmod(t.Path, filePerm); err != nil {
		s.logger.Warn("setting ticket file mode", zap.String("key", key), zap.Error(err))
	}

	s.mu.Lock()
	s.next[p.Code] = number + 1
	s.mu.Unlock()
	if err := writeCounter(p.CounterPath(), number+1); err != nil {
		// The ticket exists; the next create rescans the directory anyway.
		s.logger.Warn("updating counter file", zap.String("project", p.Code), zap.Error(err))
	}

	s.logger.Debug("ticket created", zap.String("key", key), zap.String("type", string(in.Type)))
	s.notify(Event{Kind: EventCreated, Project: p.Code, Key: key, Title: title, Status: t.Status})
	return t, nil
}

// nextNumber returns the largest of the in-memory counter, the counter
// file, the highest existing number + 1 and the project's start number.
func (s *FileStore) nextNumber(p *project.Project, dir string) (int, error) {
	next := max(p.StartNumber, 1)

	s.mu.Lock()
	next = max(next, s.next[p.Code])
	s.mu.Unlock()

	counter, err := readCounter(p.CounterPath())
	if err != nil {
		return 0, err
	}
	next = max(next, counter)

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("reading tickets directory: %w", err)
	}
	for _, e := range entries {
		if code, n, ok := parseFileKey(e.Name()); ok && code == p.Code {
			next = max(next, n+1)
		}
	}
	return next, nil
}

// Get reads one ticket.
func (s *FileStore) Get(ctx context.Context, p *project.Project, key keys.Key) (*Ticket, error) {
	return s.find(ctx, p, key)
}

// List reads every ticket in p's main tickets directory that passes f,
// ordered by number. Files that fail to parse are skipped.
func (s *FileStore) List(ctx context.Context, p *project.Project, f Filter) ([]*Ticket, error) {
	dir := p.TicketsDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tickets directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
			names = append(names, e.Name())
		}
	}

	loaded := make([]*Ticket, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseJobs)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := s.load(p, filepath.Join(dir, name))
			if err != nil {
				s.logger.Warn("skipping unreadable ticket", zap.String("file", name), zap.Error(err))
				return nil
			}
			loaded[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Ticket
	for _, t := range loaded {
		if t != nil && f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// restrictedAttrs change only through their dedicated operations.
var restrictedAttrs = []string{"status", "title", "type"}

// AllowedAttrs are the header fields UpdateAttrs may set.
var AllowedAttrs = []string{
	"assignee", "blocks", "dependsOn", "impactAreas", "implementationDate",
	"implementationNotes", "phaseEpic", "priority", "relatedTickets",
}

// UpdateAttrs sets generic header fields. Values are stored as given.
// It returns the updated ticket and the sorted names of the fields set.
func (s *FileStore) UpdateAttrs(ctx context.Context, p *project.Project, key keys.Key, attrs map[string]any) (*Ticket, []string, error) {
	if err := validateAttrs(attrs); err != nil {
		return nil, nil, err
	}

	var fields []string
	t, err := s.mutate(ctx, p, key, func(t *Ticket) ([]string, error) {
		for name, value := range attrs {
			setAttr(&t.Header, name, value)
			fields = append(fields, name)
		}
		sort.Strings(fields)
		return fields, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return t, fields, nil
}

func validateAttrs(attrs map[string]any) error {
	allowed := strings.Join(AllowedAttrs, ", ")
	if len(attrs) == 0 {
		return &ValidationError{Field: "attributes", Message: "attributes cannot be empty (allowed: " + allowed + ")"}
	}

	var restricted, unknown []string
	for name := range attrs {
		switch {
		case slices.Contains(restrictedAttrs, name):
			restricted = append(restricted, name)
		case !slices.Contains(AllowedAttrs, name):
			unknown = append(unknown, name)
		}
	}
	if len(restricted) > 0 {
		sort.Strings(restricted)
		return &ValidationError{
			Field: "attributes",
			Message: fmt.Sprintf("attributes %s cannot be changed here: status has its own operation, title and type are fixed at creation (allowed: %s)",
				strings.Join(restricted, ", "), allowed),
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{
			Field:   "attributes",
			Message: fmt.Sprintf("unknown attributes %s (allowed: %s)", strings.Join(unknown, ", "), allowed),
		}
	}
	return nil
}

func setAttr(h *Header, name string, value any) {
	if name == "impactAreas" {
		h.ImpactAreas = toList(value)
		return
	}
	v := toText(value)
	switch name {
	case "priority":
		h.Priority = Priority(v)
	case "phaseEpic":
		h.PhaseEpic = v
	case "assignee":
		h.Assignee = v
	case "dependsOn":
		h.DependsOn = v
	case "blocks":
		h.Blocks = v
	case "relatedTickets":
		h.RelatedTickets = v
	case "implementationDate":
		h.ImplementationDate = v
	case "implementationNotes":
		h.ImplementationNotes = v
	}
}

func toText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, toText(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func toList(value any) StringList {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(toText(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return StringList(v)
	default:
		return splitList(toText(v))
	}
}

// UpdateStatus moves a ticket to status. Any status may follow any other.
// Reaching Implemented stamps implementationDate when it is unset.
func (s *FileStore) UpdateStatus(ctx context.Context, p *project.Project, key keys.Key, status Status) (*StatusChange, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	var old Status
	t, err := s.mutate(ctx, p, key, func(t *Ticket) ([]string, error) {
		old = t.Status
		t.Status = status
		fields := []string{"status"}
		if status == StatusImplemented && t.ImplementationDate == "" {
			t.ImplementationDate = timeNow().UTC().Format("2006-01-02")
			fields = append(fields, "implementationDate")
		}
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return &StatusChange{Ticket: t, Old: old, New: status}, nil
}

// ListSections returns a ticket's sections in document order.
func (s *FileStore) ListSections(ctx context.Context, p *project.Project, key keys.Key) ([]Section, error) {
	t, err := s.find(ctx, p, key)
	if err != nil {
		return nil, err
	}
	return t.Sections(), nil
}

// GetSection returns the section addressed by heading and its body.
func (s *FileStore) GetSection(ctx context.Context, p *project.Project, key keys.Key, heading string) (Section, string, error) {
	t, err := s.find(ctx, p, key)
	if err != nil {
		return Section{}, "", err
	}
	sections := t.Sections()
	sec, ok := findSection(sections, heading)
	if !ok {
		return Section{}, "", sectionNotFound(heading, sections)
	}
	return sec, sectionBody(t.Body, sec), nil
}

// UpdateSection replaces or appends to one section's body. The heading
// line and every other section stay byte-identical.
func (s *FileStore) UpdateSection(ctx context.Context, p *project.Project, key keys.Key, heading, content string, mode UpdateMode) (Section, error) {
	mode, err := ParseUpdateMode(string(mode))
	if err != nil {
		return Section{}, err
	}

	var updated Section
	_, err = s.mutate(ctx, p, key, func(t *Ticket) ([]string, error) {
		sections := t.Sections()
		sec, ok := findSection(sections, heading)
		if !ok {
			return nil, sectionNotFound(heading, sections)
		}
		if err := checkSectionContent(stripLeadingHeading(content, sec)); err != nil {
			return nil, err
		}
		t.Body = replaceSection(t.Body, sec, content, mode)
		updated = sec
		return []string{"section:" + sec.Heading}, nil
	})
	return updated, err
}

func sectionNotFound(heading string, sections []Section) error {
	return &NotFoundError{
		What:      fmt.Sprintf("section %q", strings.TrimSpace(heading)),
		Available: headingsOf(sections),
	}
}

// Delete removes a ticket file.
func (s *FileStore) Delete(ctx context.Context, p *project.Project, key keys.Key) (*Ticket, error) {
	unlock := s.files.Lock(key.String())
	defer unlock()

	t, err := s.find(ctx, p, key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Remove(t.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ticketNotFound(key.String())
		}
		return nil, fmt.Errorf("deleting ticket %s: %w", key, err)
	}

	s.notify(Event{Kind: EventDeleted, Project: p.Code, Key: t.Key, Title: t.Title, Status: t.Status})
	return t, nil
}

// mutate runs fn on the current ticket under the ticket's lock and
// writes the result back.
func (s *FileStore) mutate(ctx context.Context, p *project.Project, key keys.Key, fn func(*Ticket) ([]string, error)) (*Ticket, error) {
	unlock := s.files.Lock(key.String())
	defer unlock()

	t, err := s.find(ctx, p, key)
	if err != nil {
		return nil, err
	}
	fields, err := fn(t)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.LastModified = timestamp()
	if err := s.write(t); err != nil {
		return nil, err
	}
	s.notify(Event{Kind: EventUpdated, Project: p.Code, Key: t.Key, Title: t.Title, Status: t.Status, Fields: fields})
	return t, nil
}

// find locates key in the directory the path resolver picks, falling back
// to the main checkout when a worktree does not carry the file.
func (s *FileStore) find(ctx context.Context, p *project.Project, key keys.Key) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := s.paths.ResolvePath(ctx, p, key.String())
	t, err := s.findIn(p, dir, key)
	if errors.Is(err, ErrNotFound) && filepath.Clean(dir) != filepath.Clean(p.TicketsDir()) {
		t, err = s.findIn(p, p.TicketsDir(), key)
	}
	return t, err
}

func (s *FileStore) findIn(p *project.Project, dir string, key keys.Key) (*Ticket, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ticketNotFound(key.String())
	}
	if err != nil {
		return nil, fmt.Errorf("reading tickets directory: %w", err)
	}

	// File names carry the key; only unconventionally named files need
	// their header read.
	var unnamed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".md") {
			continue
		}
		code, n, ok := parseFileKey(name)
		if !ok {
			unnamed = append(unnamed, name)
			continue
		}
		if code == key.Project && n == key.Number {
			return s.load(p, filepath.Join(dir, name))
		}
	}

	for _, name := range unnamed {
		t, err := s.load(p, filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if t.Key == key.String() {
			return t, nil
		}
	}
	return nil, ticketNotFound(key.String())
}

// load parses one ticket file. The key comes from the header's code and
// falls back to the file name.
func (s *FileStore) load(p *project.Project, path string) (*Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ticket file: %w", err)
	}
	h, body, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	code, n, ok := parseFileKey(h.Code)
	if !ok {
		code, n, ok = parseFileKey(filepath.Base(path))
	}
	if !ok {
		return nil, fmt.Errorf("parsing %s: no ticket key in header or file name", filepath.Base(path))
	}

	return &Ticket{
		Header:  *h,
		Key:     keys.Format(code, n),
		Number:  n,
		Body:    body,
		Path:    path,
		RelPath: filepath.Join(p.TicketsPath, filepath.Base(path)),
	}, nil
}

func (s *FileStore) write(t *Ticket) error {
	if t.Code == "" {
		t.Code = t.Key
	}
	data, err := encodeDocument(&t.Header, t.Body)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(t.Path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("writing ticket %s: %w", t.Key, err)
	}
	return nil
}
