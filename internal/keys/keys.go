// Package keys normalizes caller-supplied ticket identifiers into
// canonical {CODE}-{NNN} keys.
//
// Two shapes are accepted: numeric shorthand ("5", "005"), resolved
// against an explicit or default project, and full keys ("mdt-5",
// "MDT-005"). An explicit project parameter always overrides the code
// embedded in a full key.
package keys

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/markdown-ticket/mdt/internal/project"
)

// Kind classifies resolution failures.
type Kind int

const (
	KindInvalidKeyFormat Kind = iota + 1
	KindInvalidProject
	KindNoProjectContext
)

// Error is a resolution failure. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
	fullPattern    = regexp.MustCompile(`^([A-Za-z]{2,5})-([0-9]+)$`)
)

// Key is a canonical ticket key.
type Key struct {
	Project string
	Number  int
}

// String formats the key with the number zero-padded to three digits.
func (k Key) String() string {
	return Format(k.Project, k.Number)
}

// Format renders a canonical key.
func Format(code string, number int) string {
	return fmt.Sprintf("%s-%03d", code, number)
}

// Parse splits a full key without consulting any registry. It accepts
// only the {CODE}-{N} shape.
func Parse(raw string) (Key, error) {
	m := fullPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Key{}, invalidFormat(raw)
	}
	n, err := parseNumber(m[2], raw)
	if err != nil {
		return Key{}, err
	}
	return Key{Project: strings.ToUpper(m[1]), Number: n}, nil
}

// Validate checks that rawKey has one of the accepted shapes, a positive
// number or {CODE}-{N}, without consulting any registry.
func Validate(rawKey string) error {
	raw := strings.TrimSpace(rawKey)
	if numericPattern.MatchString(raw) {
		_, err := parseNumber(raw, rawKey)
		return err
	}
	_, err := Parse(rawKey)
	return err
}

// NormalizeCode upper-cases code and checks it is 2-5 letters.
func NormalizeCode(code string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if !project.ValidCode(upper) {
		return "", &Error{
			Kind:    KindInvalidProject,
			Message: fmt.Sprintf("invalid project code %s: must be 2-5 uppercase letters (e.g. MDT)", quote(code)),
		}
	}
	return upper, nil
}

// Projects is the subset of the project registry the resolver needs.
type Projects interface {
	Get(code string) (*project.Project, error)
	Default() (*project.Project, bool)
}

// Resolver turns raw keys into projects and canonical keys.
type Resolver struct {
	projects Projects
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(projects Projects) *Resolver {
	return &Resolver{projects: projects}
}

// Resolve normalizes rawKey. explicitProject may be empty.
func (r *Resolver) Resolve(rawKey, explicitProject string) (*project.Project, Key, error) {
	raw := strings.TrimSpace(rawKey)

	var code string
	var number int
	switch {
	case numericPattern.MatchString(raw):
		n, err := parseNumber(raw, rawKey)
		if err != nil {
			return nil, Key{}, err
		}
		number = n
	case fullPattern.MatchString(raw):
		k, err := Parse(raw)
		if err != nil {
			return nil, Key{}, err
		}
		code, number = k.Project, k.Number
	default:
		return nil, Key{}, invalidFormat(rawKey)
	}

	// The explicit project parameter wins over the embedded code.
	if strings.TrimSpace(explicitProject) != "" {
		code = explicitProject
	}

	p, err := r.ResolveProject(code)
	if err != nil {
		return nil, Key{}, err
	}
	return p, Key{Project: p.Code, Number: number}, nil
}

// ResolveProject validates an explicit project code, or falls back to
// the default project when code is empty.
func (r *Resolver) ResolveProject(code string) (*project.Project, error) {
	if strings.TrimSpace(code) == "" {
		p, ok := r.projects.Default()
		if !ok {
			return nil, &Error{
				Kind: KindNoProjectContext,
				Message: "no project context: pass the 'project' parameter, or run from a directory " +
					"containing " + project.ConfigFileName + " (checked up to the configured search depth)",
			}
		}
		return p, nil
	}

	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return r.projects.Get(normalized)
}

func parseNumber(digits, raw string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, invalidFormat(raw)
	}
	return n, nil
}

func invalidFormat(raw string) error {
	return &Error{
		Kind: KindInvalidKeyFormat,
		Message: fmt.Sprintf("invalid CR key %s: use a number (e.g. 5 or 005) with a project, "+
			"or a full key PROJECT-NUMBER (e.g. MDT-005)", quote(raw)),
	}
}

// quote renders caller input for messages, truncated and quoted so that
// control characters never reach the caller raw.
func quote(s string) string {
	const max = 40
	if len(s) > max {
		s = s[:max] + "..."
	}
	return strconv.Quote(s)
}
