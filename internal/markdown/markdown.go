// Package markdown holds the shared goldmark parser and the small AST
// helpers the ticket store and the suggestion engine both need.
package markdown

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// The parser configuration never changes and goldmark keeps per-call
// state in the reader, so one instance serves every goroutine.
var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func parser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parserInstance
}

// Parse returns the document node for source.
func Parse(source []byte) ast.Node {
	return parser().Parser().Parse(text.NewReader(source))
}

// Heading is an ATX heading located in its source.
type Heading struct {
	Level int
	// Text is the heading text without the leading #s or a closing sequence.
	Text string
	// Start is the byte offset of the heading line; End is the offset just
	// past its newline (or len(source) on the last line).
	Start, End int
}

// TopLevelHeadings returns the ATX headings that are direct children of
// the document, in order. Headings inside fenced code, lists or block
// quotes are not document children and are never returned. Setext
// and empty headings are skipped.
func TopLevelHeadings(doc ast.Node, source []byte) []Heading {
	var out []Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if heading, ok := Locate(h, source); ok {
			out = append(out, heading)
		}
	}
	return out
}

// Locate finds the source line of an ATX heading node.
func Locate(h *ast.Heading, source []byte) (Heading, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		// An empty heading ("##") has no text to address.
		return Heading{}, false
	}
	offset := lines.At(0).Start

	start := bytes.LastIndexByte(source[:offset], '\n') + 1
	end := len(source)
	if i := bytes.IndexByte(source[offset:], '\n'); i >= 0 {
		end = offset + i + 1
	}

	level, txt, ok := ParseATX(string(source[start:end]))
	if !ok || level != h.Level {
		return Heading{}, false
	}
	return Heading{Level: level, Text: txt, Start: start, End: end}, true
}

// ParseATX parses one line as an ATX heading.
func ParseATX(line string) (level int, txt string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0, "", false
	}
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	rest = strings.TrimSpace(rest)

	// Optional closing sequence: spaces followed by #s only.
	if i := strings.LastIndexAny(rest, " \t"); i >= 0 && strings.Trim(rest[i+1:], "#") == "" {
		rest = strings.TrimSpace(rest[:i])
	} else if strings.Trim(rest, "#") == "" {
		rest = ""
	}
	return level, rest, true
}
