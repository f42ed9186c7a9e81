// Package suggest reviews a ticket body and proposes improvements.
//
// The analysis walks the goldmark AST of the body. Each rule yields
// suggestions in one of four categories; the score starts at 100 and loses
// a fixed weight per suggestion severity. A complete, well structured
// ticket produces only info or minor findings.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// Category groups suggestions.
type Category string

const (
	CategoryContentDepth       Category = "Content Depth"
	CategoryAcceptanceCriteria Category = "Acceptance Criteria"
	CategoryStructure          Category = "Structure"
	CategoryGeneral            Category = "General"
)

// Severity ranks suggestions.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// severityWeight is the score penalty per suggestion.
var severityWeight = map[Severity]int{
	SeverityInfo:     1,
	SeverityMinor:    5,
	SeverityMajor:    15,
	SeverityCritical: 40,
}

// Suggestion is one finding.
type Suggestion struct {
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Section    string   `json:"section,omitempty"`
	Message    string   `json:"message"`
	Actionable string   `json:"actionable"`
}

// Report is the result of analysing one ticket.
type Report struct {
	Key         string       `json:"key"`
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	Score       int          `json:"score"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Counts returns the number of suggestions per severity.
func (r *Report) Counts() map[Severity]int {
	out := make(map[Severity]int, len(severityWeight))
	for _, s := range r.Suggestions {
		out[s.Severity]++
	}
	return out
}

// TicketReader is the slice of the ticket store the engine needs.
type TicketReader interface {
	Get(ctx context.Context, p *project.Project, key keys.Key) (*tickets.Ticket, error)
}

// Engine analyses stored tickets.
type Engine struct {
	tickets TicketReader
}

// NewEngine creates an engine reading through store.
func NewEngine(store TicketReader) *Engine {
	return &Engine{tickets: store}
}

// Analyze loads a ticket and reviews it. A missing ticket surfaces the
// store's not-found error unchanged.
func (e *Engine) Analyze(ctx context.Context, p *project.Project, key keys.Key) (*Report, error) {
	t, err := e.tickets.Get(ctx, p, key)
	if err != nil {
		return nil, err
	}
	return AnalyzeTicket(t), nil
}

// AnalyzeTicket reviews an already loaded ticket.
func AnalyzeTicket(t *tickets.Ticket) *Report {
	doc := parseDocument(t.Body)

	var out []Suggestion
	out = append(out, checkSections(doc)...)
	out = append(out, checkAcceptanceCriteria(doc)...)
	out = append(out, checkStructure(doc)...)
	out = append(out, checkHeader(t)...)

	r := &Report{
		Key:         t.Key,
		Title:       t.Title,
		Suggestions: out,
		Score:       score(out),
	}
	if r.Suggestions == nil {
		r.Suggestions = []Suggestion{}
	}
	r.Summary = summarize(r)
	return r
}

func score(suggestions []Suggestion) int {
	total := 100
	for _, s := range suggestions {
		total -= severityWeight[s.Severity]
	}
	return max(total, 0)
}

func summarize(r *Report) string {
	if len(r.Suggestions) == 0 {
		return fmt.Sprintf("%s looks complete: no suggestions (score %d/100).", r.Key, r.Score)
	}
	counts := r.Counts()
	var parts []string
	for _, sev := range []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return fmt.Sprintf("%s: %d suggestion(s) (%s), score %d/100.",
		r.Key, len(r.Suggestions), strings.Join(parts, ", "), r.Score)
}
