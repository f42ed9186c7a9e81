package suggest

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"

	"github.com/markdown-ticket/mdt/internal/markdown"
)

// document is a parsed body grouped into level-2 sections.
type document struct {
	src      []byte
	headings []markdown.Heading
	sections []*section
}

type section struct {
	heading markdown.Heading
	ordinal bool
	title   string
	nodes   []ast.Node
}

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s+`)

func parseDocument(body string) *document {
	src := []byte(body)
	root := markdown.Parse(src)
	d := &document{src: src, headings: markdown.TopLevelHeadings(root, src)}

	var current *section
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 2 {
			current = nil
			if loc, ok := markdown.Locate(h, src); ok && h.Level == 2 {
				current = &section{
					heading: loc,
					ordinal: ordinalPrefix.MatchString(loc.Text),
					title:   strings.TrimSpace(ordinalPrefix.ReplaceAllString(loc.Text, "")),
				}
				d.sections = append(d.sections, current)
			}
			continue
		}
		if current != nil {
			current.nodes = append(current.nodes, n)
		}
	}
	return d
}

// find returns the first section whose title contains any of names.
func (d *document) find(names ...string) *section {
	for _, s := range d.sections {
		title := strings.ToLower(s.title)
		for _, name := range names {
			if strings.Contains(title, name) {
				return s
			}
		}
	}
	return nil
}

// text returns the visible prose of the section. Fenced and indented code
// is left out; HTML comments are reported separately.
func (s *section) text(src []byte) (prose string, hasComment bool) {
	var b strings.Builder
	for _, n := range s.nodes {
		_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch v := node.(type) {
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				return ast.WalkSkipChildren, nil
			case *ast.HTMLBlock:
				if strings.Contains(blockText(v, src), "<!--") {
					hasComment = true
				}
				return ast.WalkSkipChildren, nil
			case *ast.RawHTML:
				for i := 0; i < v.Segments.Len(); i++ {
					seg := v.Segments.At(i)
					if strings.Contains(string(seg.Value(src)), "<!--") {
						hasComment = true
					}
				}
			case *ast.Text:
				b.Write(v.Segment.Value(src))
				b.WriteByte(' ')
			case *ast.String:
				b.Write(v.Value)
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		})
	}
	return b.String(), hasComment
}

func blockText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// listItem is one bullet of a list found in a section.
type listItem struct {
	text     string
	checkbox bool
}

func (s *section) listItems(src []byte) []listItem {
	var items []listItem
	for _, n := range s.nodes {
		_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if _, ok := node.(*ast.ListItem); ok {
				items = append(items, itemOf(node, src))
			}
			return ast.WalkContinue, nil
		})
	}
	return items
}

func itemOf(li ast.Node, src []byte) listItem {
	var item listItem
	var b strings.Builder
	_ = ast.Walk(li, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.List:
			// Nested lists are reported as their own items.
			return ast.WalkSkipChildren, nil
		case *extast.TaskCheckBox:
			item.checkbox = true
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	item.text = strings.TrimSpace(b.String())
	return item
}
