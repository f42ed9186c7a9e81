package tickets

import "strings"

const maxSlugLen = 50

// Slugify converts a ticket title into a filesystem-safe slug.
// Example: "Fix FTS5 empty query crash" → "fix-fts5-empty-query-crash"
//
// Rules:
//   - Lowercase ASCII letters and digits are kept
//   - Spaces, underscores and hyphens become a single hyphen
//   - Everything else is dropped
//   - Truncated to 50 characters, at a word boundary when one is close
//   - Titles with nothing left return "untitled"
func Slugify(title string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-' || r == '\t':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	if len(slug) <= maxSlugLen {
		return slug
	}

	truncated := slug[:maxSlugLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxSlugLen/2 {
		truncated = truncated[:lastHyphen]
	}
	return strings.TrimRight(truncated, "-")
}
