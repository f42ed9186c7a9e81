package tickets

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Ticket is a parsed ticket file.
type Ticket struct {
	Header
	Key    string
	Number int
	Body   string
	// Path is the absolute file path; RelPath is relative to the project
	// root. Only RelPath is ever shown to callers.
	Path    string
	RelPath string
}

// Sections lists the body's level-2 sections in document order.
func (t *Ticket) Sections() []Section {
	return parseSections(t.Body)
}

// Attributes returns every header field, including unknown keys.
func (t *Ticket) Attributes() map[string]any {
	out := make(map[string]any, len(t.Extra)+16)
	for k, v := range t.Extra {
		out[k] = v
	}
	out["code"] = t.Key
	out["title"] = t.Title
	out["status"] = string(t.Status)
	out["type"] = string(t.Type)
	setIf(out, "priority", string(t.Priority))
	setIf(out, "dateCreated", t.DateCreated)
	setIf(out, "lastModified", t.LastModified)
	setIf(out, "phaseEpic", t.PhaseEpic)
	setIf(out, "assignee", t.Assignee)
	setIf(out, "dependsOn", t.DependsOn)
	setIf(out, "blocks", t.Blocks)
	setIf(out, "relatedTickets", t.RelatedTickets)
	if len(t.ImpactAreas) > 0 {
		out["impactAreas"] = []string(t.ImpactAreas)
	}
	setIf(out, "implementationDate", t.ImplementationDate)
	setIf(out, "implementationNotes", t.ImplementationNotes)
	return out
}

// Metadata is the reduced view list and metadata reads return.
type Metadata struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	Status       Status   `json:"status"`
	Type         Type     `json:"type"`
	Priority     Priority `json:"priority,omitempty"`
	DateCreated  string   `json:"dateCreated,omitempty"`
	LastModified string   `json:"lastModified,omitempty"`
	Path         string   `json:"path"`
}

// Metadata returns the reduced view of t.
func (t *Ticket) Metadata() Metadata {
	return Metadata{
		Key:          t.Key,
		Title:        t.Title,
		Status:       t.Status,
		Type:         t.Type,
		Priority:     t.Priority,
		DateCreated:  t.DateCreated,
		LastModified: t.LastModified,
		Path:         filepath.ToSlash(t.RelPath),
	}
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

var fileKeyPattern = regexp.MustCompile(`^([A-Za-z]{2,5})-(\d+)(?:[-_.]|$)`)

// parseFileKey extracts the project code and number from a ticket file
// name such as "MDT-005-add-export.md" or a key such as "mdt-5".
func parseFileKey(name string) (string, int, bool) {
	m := fileKeyPattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return strings.ToUpper(m[1]), n, true
}

// fileName builds the file name for a new ticket.
func fileName(key, title string) string {
	return key + "-" + Slugify(title) + ".md"
}
