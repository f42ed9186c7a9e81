package suggest

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/markdown-ticket/mdt/internal/tickets"
)

const minSectionWords = 20

var (
	placeholderPattern = regexp.MustCompile(`(?i)\bTODO\b|\bTBD\b|\[\.\.\.\]|\.\.\.`)
	vaguePattern       = regexp.MustCompile(`(?i)\b(works?|working|properly|correctly|fast(er)?|better|good|nice|easy|easily|user[- ]friendly|efficient(ly)?|appropriate(ly)?|as expected|robust|seamless(ly)?|intuitive)\b`)
	digitPattern       = regexp.MustCompile(`\d`)
)

// coreSections are the section families every ticket should carry. A
// section satisfies a family when its title contains any of the names.
var coreSections = []struct {
	family string
	names  []string
}{
	{"description", []string{"description", "problem", "objective", "overview", "context"}},
	{"rationale or solution", []string{"rationale", "solution", "approach", "design", "decision"}},
}

var acceptanceNames = []string{"acceptance criteria", "success criteria", "definition of done"}

func checkSections(d *document) []Suggestion {
	if len(d.sections) == 0 {
		return []Suggestion{{
			Category:   CategoryStructure,
			Severity:   SeverityCritical,
			Message:    "The ticket has no ## sections.",
			Actionable: "Organise the body into ## sections such as Description, Rationale, Solution Analysis and Acceptance Criteria.",
		}}
	}

	var out []Suggestion
	for _, core := range coreSections {
		if d.find(core.names...) == nil {
			out = append(out, Suggestion{
				Category:   CategoryContentDepth,
				Severity:   SeverityMajor,
				Message:    fmt.Sprintf("No %s section.", core.family),
				Actionable: fmt.Sprintf("Add a ## section covering the %s.", core.family),
			})
		}
	}

	for _, s := range d.sections {
		if isAcceptance(s) {
			continue
		}
		prose, hasComment := s.text(d.src)
		allWords := len(strings.Fields(prose))
		words := len(strings.Fields(placeholderPattern.ReplaceAllString(prose, " ")))

		switch {
		case allWords == 0 && !hasComment:
			out = append(out, Suggestion{
				Category:   CategoryContentDepth,
				Severity:   SeverityMajor,
				Section:    s.heading.Text,
				Message:    "Section is empty.",
				Actionable: "Write the content of this section or remove it.",
			})
		case words == 0:
			out = append(out, Suggestion{
				Category:   CategoryContentDepth,
				Severity:   SeverityMajor,
				Section:    s.heading.Text,
				Message:    "Section holds only placeholder text.",
				Actionable: "Replace the TODO/TBD markers or comments with real content.",
			})
		case words < minSectionWords:
			out = append(out, Suggestion{
				Category:   CategoryContentDepth,
				Severity:   SeverityMinor,
				Section:    s.heading.Text,
				Message:    fmt.Sprintf("Section is short (%d words).", words),
				Actionable: fmt.Sprintf("Expand to at least %d words with specifics: affected components, constraints, examples.", minSectionWords),
			})
		}
	}
	return out
}

func isAcceptance(s *section) bool {
	title := strings.ToLower(s.title)
	for _, name := range acceptanceNames {
		if strings.Contains(title, name) {
			return true
		}
	}
	return false
}

func checkAcceptanceCriteria(d *document) []Suggestion {
	if len(d.sections) == 0 {
		return nil
	}
	s := d.find(acceptanceNames...)
	if s == nil {
		return []Suggestion{{
			Category:   CategoryAcceptanceCriteria,
			Severity:   SeverityMajor,
			Message:    "No acceptance criteria section.",
			Actionable: "Add a ## Acceptance Criteria section with one checkbox item per verifiable outcome.",
		}}
	}

	items := s.listItems(d.src)
	if len(items) == 0 {
		return []Suggestion{{
			Category:   CategoryAcceptanceCriteria,
			Severity:   SeverityMajor,
			Section:    s.heading.Text,
			Message:    "Acceptance criteria are not written as a list.",
			Actionable: "List each criterion as a separate \"- [ ]\" item.",
		}}
	}

	var out []Suggestion
	checkboxes := 0
	for _, item := range items {
		if item.checkbox {
			checkboxes++
		}
		if m := vaguePattern.FindString(item.text); m != "" && !digitPattern.MatchString(item.text) {
			out = append(out, Suggestion{
				Category:   CategoryAcceptanceCriteria,
				Severity:   SeverityMinor,
				Section:    s.heading.Text,
				Message:    fmt.Sprintf("Criterion %q is vague (%q) and has no measurable value.", truncate(item.text, 60), m),
				Actionable: "State a measurable threshold, e.g. a latency, count or observable output.",
			})
		}
	}
	if checkboxes == 0 {
		out = append(out, Suggestion{
			Category:   CategoryAcceptanceCriteria,
			Severity:   SeverityInfo,
			Section:    s.heading.Text,
			Message:    "Criteria have no checkboxes.",
			Actionable: "Use \"- [ ]\" items so progress can be tracked.",
		})
	}
	return out
}

func checkStructure(d *document) []Suggestion {
	var out []Suggestion

	prev := 0
	for _, h := range d.headings {
		if prev > 0 && h.Level > prev+1 {
			out = append(out, Suggestion{
				Category:   CategoryStructure,
				Severity:   SeverityMinor,
				Section:    h.Text,
				Message:    fmt.Sprintf("Heading level jumps from %d to %d.", prev, h.Level),
				Actionable: fmt.Sprintf("Use a level-%d heading here.", prev+1),
			})
		}
		prev = h.Level
	}

	numbered := 0
	seen := make(map[string]bool)
	for _, s := range d.sections {
		if s.ordinal {
			numbered++
		}
		norm := strings.ToLower(s.title)
		if seen[norm] {
			out = append(out, Suggestion{
				Category:   CategoryStructure,
				Severity:   SeverityMinor,
				Section:    s.heading.Text,
				Message:    fmt.Sprintf("Duplicate section %q.", s.title),
				Actionable: "Merge the duplicate sections; edits address the first one only.",
			})
		}
		seen[norm] = true
	}
	if numbered > 0 && numbered < len(d.sections) {
		out = append(out, Suggestion{
			Category:   CategoryStructure,
			Severity:   SeverityMinor,
			Message:    "Numbered and unnumbered ## headings are mixed.",
			Actionable: "Number every ## heading (\"1. Description\") or none of them.",
		})
	}

	blankRun, maxRun, trailing := 0, 0, 0
	for _, line := range bytes.Split(bytes.TrimSuffix(d.src, []byte("\n")), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			blankRun++
			maxRun = max(maxRun, blankRun)
		} else {
			blankRun = 0
		}
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			trailing++
		}
	}
	if maxRun > 2 {
		out = append(out, Suggestion{
			Category:   CategoryStructure,
			Severity:   SeverityMinor,
			Message:    fmt.Sprintf("%d consecutive blank lines.", maxRun),
			Actionable: "Separate blocks with a single blank line.",
		})
	}
	if trailing > 0 {
		out = append(out, Suggestion{
			Category:   CategoryStructure,
			Severity:   SeverityMinor,
			Message:    fmt.Sprintf("%d line(s) end with whitespace.", trailing),
			Actionable: "Strip trailing spaces and tabs.",
		})
	}
	return out
}

func checkHeader(t *tickets.Ticket) []Suggestion {
	var out []Suggestion
	if t.Priority == "" {
		out = append(out, Suggestion{
			Category:   CategoryGeneral,
			Severity:   SeverityInfo,
			Message:    "No priority set.",
			Actionable: "Set priority to Low, Medium, High or Critical.",
		})
	}
	if t.Assignee == "" {
		out = append(out, Suggestion{
			Category:   CategoryGeneral,
			Severity:   SeverityInfo,
			Message:    "No assignee.",
			Actionable: "Set the assignee attribute once someone owns the work.",
		})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
