package tickets

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

var errNoFrontmatter = errors.New("missing frontmatter")

// Header is the YAML frontmatter of a ticket file. Keys this server does
// not know are kept in Extra and written back unchanged.
type Header struct {
	Code                string     `yaml:"code"`
	Title               string     `yaml:"title"`
	Status              Status     `yaml:"status"`
	Type                Type       `yaml:"type"`
	Priority            Priority   `yaml:"priority,omitempty"`
	DateCreated         string     `yaml:"dateCreated,omitempty"`
	LastModified        string     `yaml:"lastModified,omitempty"`
	PhaseEpic           string     `yaml:"phaseEpic,omitempty"`
	Assignee            string     `yaml:"assignee,omitempty"`
	DependsOn           string     `yaml:"dependsOn,omitempty"`
	Blocks              string     `yaml:"blocks,omitempty"`
	RelatedTickets      string     `yaml:"relatedTickets,omitempty"`
	ImpactAreas         StringList `yaml:"impactAreas,omitempty"`
	ImplementationDate  string     `yaml:"implementationDate,omitempty"`
	ImplementationNotes string     `yaml:"implementationNotes,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// StringList decodes from a YAML sequence or from a comma-separated
// scalar, the shape older ticket files use.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
	case yaml.ScalarNode:
		*l = splitList(node.Value)
	default:
		return fmt.Errorf("line %d: expected a list or a comma-separated string", node.Line)
	}
	return nil
}

func splitList(s string) StringList {
	var out StringList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitDocument separates the frontmatter from the markdown body. CRLF
// line endings are normalised to LF.
func splitDocument(data []byte) (header []byte, body string, err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, fence+"\n") {
		return nil, "", errNoFrontmatter
	}
	rest := text[len(fence)+1:]

	// The closing fence may directly follow the opening one (empty header).
	if strings.HasPrefix(rest, fence+"\n") || rest == fence {
		return nil, strings.TrimPrefix(strings.TrimPrefix(rest, fence), "\n"), nil
	}

	end := strings.Index(rest, "\n"+fence+"\n")
	if end < 0 {
		if !strings.HasSuffix(rest, "\n"+fence) {
			return nil, "", fmt.Errorf("%w: unterminated header", errNoFrontmatter)
		}
		return []byte(rest[:len(rest)-len(fence)]), "", nil
	}
	return []byte(rest[:end+1]), rest[end+len(fence)+2:], nil
}

// decodeDocument parses a ticket file.
func decodeDocument(data []byte) (*Header, string, error) {
	raw, body, err := splitDocument(data)
	if err != nil {
		return nil, "", err
	}
	var h Header
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &h); err != nil {
			return nil, "", fmt.Errorf("parsing header: %w", err)
		}
	}
	return &h, body, nil
}

// encodeDocument renders a header and body back into file contents.
func encodeDocument(h *Header, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	buf.WriteString(fence + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
