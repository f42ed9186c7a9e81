// Package sanitize strips active content from text returned to callers.
//
// Ticket bodies are markdown written by humans and assistants; a client
// may render them as HTML. Script-bearing tags, inline event handlers and
// dangerous URL schemes are removed. Everything else, including ordinary
// markdown, inline code and benign HTML, passes through byte for byte.
package sanitize

import (
	"regexp"
	"strings"
)

// maxPasses bounds the fixed-point loop. Nested payloads such as
// "<scr<script>ipt>" need more than one pass.
const maxPasses = 5

var rules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// <script>...</script>, including unterminated blocks.
	{regexp.MustCompile(`(?is)<script\b[^>]*>.*?(?:</script\s*>|$)`), ""},
	// Stray opening or closing script tags.
	{regexp.MustCompile(`(?i)</?script\b[^>]*>`), ""},
	// Embedded frames and plugins with their closing tags.
	{regexp.MustCompile(`(?is)<(iframe|object|embed)\b[^>]*>(?:.*?</(?:iframe|object|embed)\s*>)?`), ""},
	{regexp.MustCompile(`(?i)</(iframe|object|embed)\s*>`), ""},
	// Dangerous URL schemes, tolerant of whitespace before the colon.
	{regexp.MustCompile(`(?i)\b(?:javascript|vbscript)\s*:`), "blocked:"},
	{regexp.MustCompile(`(?i)\bdata\s*:\s*text/html`), "blocked:"},
	// Quoted handlers anywhere, including plain text and unclosed tags.
	{regexp.MustCompile(`(?i)\s*\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*')`), ""},
}

var (
	// tagPattern finds HTML start tags; unquoted handlers are only stripped
	// inside them so prose such as "online=true" is left alone.
	tagPattern = regexp.MustCompile(`<[A-Za-z][^>]*>`)
	// handlerPattern matches onclick="...", onload='...' and onerror=x.
	handlerPattern = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// Text returns s with active content removed. Input without any of the
// dangerous patterns is returned unchanged.
func Text(s string) string {
	for i := 0; i < maxPasses; i++ {
		next := s
		for _, r := range rules {
			next = r.pattern.ReplaceAllString(next, r.replace)
		}
		next = tagPattern.ReplaceAllStringFunc(next, func(tag string) string {
			return handlerPattern.ReplaceAllString(tag, "")
		})
		if next == s {
			break
		}
		s = next
	}
	return s
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeMessage escapes the characters that would let an error message
// carry markup. It is applied to error text only, never to ticket data.
func EscapeMessage(s string) string {
	return htmlEscaper.Replace(s)
}
