package tickets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/markdown-ticket/mdt/internal/markdown"
)

// Section is one level-2 heading of a ticket body and everything up to the
// next heading of level 1 or 2.
type Section struct {
	// Heading is the heading text as written, e.g. "1. Description".
	Heading string `json:"heading"`
	// Title is Heading without its ordinal prefix.
	Title string `json:"title"`
	// Ordinal is the "N." prefix number, or 0 for unnumbered headings.
	Ordinal int `json:"ordinal"`

	start     int // heading line
	bodyStart int // after the heading line
	end       int // next boundary heading or end of body
}

var ordinalPrefix = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

func splitOrdinal(heading string) (int, string) {
	m := ordinalPrefix.FindStringSubmatch(heading)
	if m == nil {
		return 0, heading
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, heading
	}
	return n, m[2]
}

// parseSections locates the sections of body in document order.
func parseSections(body string) []Section {
	src := []byte(body)
	headings := markdown.TopLevelHeadings(markdown.Parse(src), src)

	var sections []Section
	for i, h := range headings {
		if h.Level != 2 {
			continue
		}
		end := len(body)
		for _, next := range headings[i+1:] {
			if next.Level <= 2 {
				end = next.Start
				break
			}
		}
		ordinal, title := splitOrdinal(h.Text)
		sections = append(sections, Section{
			Heading:   h.Text,
			Title:     title,
			Ordinal:   ordinal,
			start:     h.Start,
			bodyStart: h.End,
			end:       end,
		})
	}
	return sections
}

// normalizeHeading reduces a section address to its comparable form:
// leading #s, the ordinal prefix, case and repeated spaces are dropped.
func normalizeHeading(s string) string {
	s = strings.TrimSpace(s)
	if level, txt, ok := markdown.ParseATX(s); ok && level > 0 {
		s = txt
	}
	_, s = splitOrdinal(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// findSection resolves an address such as "## 1. Description",
// "1. Description" or "description". An exact heading match wins over a
// title-only match so "2. Notes" can be told apart from "3. Notes".
func findSection(sections []Section, address string) (Section, bool) {
	want := strings.TrimSpace(address)
	if level, txt, ok := markdown.ParseATX(want); ok && level > 0 {
		want = txt
	}
	for _, s := range sections {
		if strings.EqualFold(s.Heading, want) {
			return s, true
		}
	}
	norm := normalizeHeading(want)
	if norm == "" {
		return Section{}, false
	}
	for _, s := range sections {
		if normalizeHeading(s.Title) == norm {
			return s, true
		}
	}
	return Section{}, false
}

func headingsOf(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Heading
	}
	return out
}

// sectionBody returns the text under a section heading without the blank
// lines that surround it.
func sectionBody(body string, s Section) string {
	return trimBlankLines(body[s.bodyStart:s.end])
}

// replaceSection rewrites one section's body and leaves every byte outside
// it untouched.
func replaceSection(body string, s Section, content string, mode UpdateMode) string {
	content = trimBlankLines(stripLeadingHeading(content, s))

	newBody := content
	if mode == UpdateAppend {
		if existing := sectionBody(body, s); existing != "" {
			newBody = existing
			if content != "" {
				newBody += "\n\n" + content
			}
		}
	}

	var b strings.Builder
	b.WriteString(body[:s.bodyStart])
	if !strings.HasSuffix(body[:s.bodyStart], "\n") {
		b.WriteString("\n")
	}
	if newBody != "" {
		b.WriteString("\n")
		b.WriteString(newBody)
		b.WriteString("\n")
	}
	if s.end < len(body) {
		b.WriteString("\n")
	}
	b.WriteString(body[s.end:])
	return b.String()
}

// stripLeadingHeading drops a first line that repeats the section's own
// heading, which callers often include when pasting a whole section.
func stripLeadingHeading(content string, s Section) string {
	trimmed := strings.TrimLeft(content, "\n")
	line, rest, _ := strings.Cut(trimmed, "\n")
	level, txt, ok := markdown.ParseATX(line)
	if !ok || level != 2 {
		return content
	}
	if strings.EqualFold(txt, s.Heading) || normalizeHeading(txt) == normalizeHeading(s.Title) {
		return rest
	}
	return content
}

// checkSectionContent rejects content that would open a new section or
// end the current one: level-1 and level-2 ATX headings outside code
// blocks. Deeper headings stay inside the section.
func checkSectionContent(content string) error {
	src := []byte(content)
	var offending []string
	for _, h := range markdown.TopLevelHeadings(markdown.Parse(src), src) {
		if h.Level <= 2 {
			offending = append(offending, strings.Repeat("#", h.Level)+" "+h.Text)
		}
	}
	if len(offending) == 0 {
		return nil
	}
	return &ValidationError{
		Field: "content",
		Message: fmt.Sprintf("section content must not contain level 1 or 2 headings (found %s); use ### or deeper for subsections",
			strings.Join(offending, ", ")),
	}
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	first, last := 0, len(lines)-1
	for first <= last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last >= first && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if first > last {
		return ""
	}
	return strings.Join(lines[first:last+1], "\n")
}
