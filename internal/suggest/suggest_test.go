package suggest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

const completeBody = `# Export tickets as CSV

## 1. Description

Project leads currently copy ticket attributes by hand into spreadsheets every week,
which takes around an hour and regularly drops tickets that were created after the
copy started.

## 2. Rationale

A built-in export removes the manual step, keeps the spreadsheet consistent with the
markdown files and lets the weekly report run unattended from a scheduled job.

## 3. Solution Analysis

Add a list_crs output option that renders the selected header fields as RFC 4180 CSV,
reusing the existing filter parsing so status, type and priority filters apply unchanged.

## 4. Acceptance Criteria

- [ ] Exporting 500 tickets completes in under 2 seconds
- [ ] The CSV header row lists the 7 metadata fields in a fixed order
`

func ticket(body string) *tickets.Ticket {
	return &tickets.Ticket{
		Header: tickets.Header{Code: "MDT-001", Title: "T", Priority: tickets.PriorityHigh, Assignee: "dana"},
		Key:    "MDT-001",
		Number: 1,
		Body:   body,
	}
}

func bySeverity(r *Report, sev Severity) []Suggestion {
	var out []Suggestion
	for _, s := range r.Suggestions {
		if s.Severity == sev {
			out = append(out, s)
		}
	}
	return out
}

func has(r *Report, cat Category, sev Severity, msgPart string) bool {
	for _, s := range r.Suggestions {
		if s.Category == cat && s.Severity == sev && strings.Contains(s.Message, msgPart) {
			return true
		}
	}
	return false
}

func TestAnalyze_CompleteTicket(t *testing.T) {
	r := AnalyzeTicket(ticket(completeBody))

	assert.Empty(t, bySeverity(r, SeverityCritical))
	assert.Empty(t, bySeverity(r, SeverityMajor))
	assert.Empty(t, r.Suggestions, "%+v", r.Suggestions)
	assert.Equal(t, 100, r.Score)
	assert.Contains(t, r.Summary, "no suggestions")
}

func TestAnalyze_NoSections(t *testing.T) {
	r := AnalyzeTicket(ticket("# Title\n\nJust a paragraph.\n"))

	require.True(t, has(r, CategoryStructure, SeverityCritical, "no ## sections"))
	assert.Len(t, r.Suggestions, 1)
	assert.Equal(t, 60, r.Score)
}

func TestAnalyze_MissingCoreAndAcceptance(t *testing.T) {
	r := AnalyzeTicket(ticket("## Notes\n\n" + strings.Repeat("word ", 25) + "\n"))

	assert.True(t, has(r, CategoryContentDepth, SeverityMajor, "No description section"))
	assert.True(t, has(r, CategoryContentDepth, SeverityMajor, "No rationale or solution section"))
	assert.True(t, has(r, CategoryAcceptanceCriteria, SeverityMajor, "No acceptance criteria"))
}

func TestAnalyze_ShortEmptyAndPlaceholderSections(t *testing.T) {
	body := "## Description\n\nToo short here.\n\n## Rationale\n\nTODO\n\n## Solution\n\n<!-- fill me -->\n\n## Design\n\n## Acceptance Criteria\n\n- [ ] 3 retries max\n"
	r := AnalyzeTicket(ticket(body))

	var sections = map[string]Severity{}
	for _, s := range r.Suggestions {
		if s.Category == CategoryContentDepth && s.Section != "" {
			sections[s.Section] = s.Severity
		}
	}
	assert.Equal(t, map[string]Severity{
		"Description": SeverityMinor,
		"Rationale":   SeverityMajor,
		"Solution":    SeverityMajor,
		"Design":      SeverityMajor,
	}, sections)
}

func TestAnalyze_AcceptanceCriteria(t *testing.T) {
	prose := strings.Repeat("detail ", 25)
	base := "## Description\n\n" + prose + "\n\n## Rationale\n\n" + prose + "\n\n## Acceptance Criteria\n\n"

	t.Run("not a list", func(t *testing.T) {
		r := AnalyzeTicket(ticket(base + "It should be done.\n"))
		assert.True(t, has(r, CategoryAcceptanceCriteria, SeverityMajor, "not written as a list"))
	})

	t.Run("vague items", func(t *testing.T) {
		r := AnalyzeTicket(ticket(base + "- [ ] Login works properly\n- [ ] Page loads fast, under 200ms\n"))
		vague := 0
		for _, s := range r.Suggestions {
			if s.Category == CategoryAcceptanceCriteria && s.Severity == SeverityMinor {
				vague++
				assert.Contains(t, s.Message, "Login works properly")
			}
		}
		assert.Equal(t, 1, vague, "items with a number are measurable")
		assert.False(t, has(r, CategoryAcceptanceCriteria, SeverityInfo, "no checkboxes"))
	})

	t.Run("no checkboxes", func(t *testing.T) {
		r := AnalyzeTicket(ticket(base + "- Returns 404 for unknown keys\n"))
		assert.True(t, has(r, CategoryAcceptanceCriteria, SeverityInfo, "no checkboxes"))
	})
}

func TestAnalyze_Structure(t *testing.T) {
	prose := strings.Repeat("detail ", 25)
	body := "# T\n\n## 1. Description\n\n" + prose + "\n\n#### Deep\n\n" + prose + "  \n\n\n\n\n## Rationale\n\n" + prose +
		"\n\n## Rationale\n\n" + prose + "\n\n## Acceptance Criteria\n\n- [ ] 1 thing\n"
	r := AnalyzeTicket(ticket(body))

	assert.True(t, has(r, CategoryStructure, SeverityMinor, "jumps from 2 to 4"))
	assert.True(t, has(r, CategoryStructure, SeverityMinor, "Duplicate section"))
	assert.True(t, has(r, CategoryStructure, SeverityMinor, "are mixed"))
	assert.True(t, has(r, CategoryStructure, SeverityMinor, "consecutive blank lines"))
	assert.True(t, has(r, CategoryStructure, SeverityMinor, "end with whitespace"))
}

func TestAnalyze_FencedHeadingsIgnored(t *testing.T) {
	body := completeBody + "\n```md\n## TODO\n```\n"
	r := AnalyzeTicket(ticket(body))
	assert.Empty(t, bySeverity(r, SeverityMajor))
}

func TestAnalyze_HeaderHints(t *testing.T) {
	tk := ticket(completeBody)
	tk.Assignee = ""
	tk.Priority = ""
	r := AnalyzeTicket(tk)

	assert.True(t, has(r, CategoryGeneral, SeverityInfo, "No assignee"))
	assert.True(t, has(r, CategoryGeneral, SeverityInfo, "No priority"))
	assert.Equal(t, 98, r.Score)
}

func TestScore_FloorsAtZero(t *testing.T) {
	var many []Suggestion
	for i := 0; i < 5; i++ {
		many = append(many, Suggestion{Severity: SeverityCritical})
	}
	assert.Equal(t, 0, score(many))
}

type fakeReader struct {
	t   *tickets.Ticket
	err error
}

func (f fakeReader) Get(context.Context, *project.Project, keys.Key) (*tickets.Ticket, error) {
	return f.t, f.err
}

func TestEngine_Analyze(t *testing.T) {
	p := &project.Project{Code: "MDT"}
	k := keys.Key{Project: "MDT", Number: 1}

	r, err := NewEngine(fakeReader{t: ticket(completeBody)}).Analyze(context.Background(), p, k)
	require.NoError(t, err)
	assert.Equal(t, "MDT-001", r.Key)

	_, err = NewEngine(fakeReader{err: &tickets.NotFoundError{What: "ticket MDT-001"}}).Analyze(context.Background(), p, k)
	require.ErrorIs(t, err, tickets.ErrNotFound)
}
