package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopLevelHeadings(t *testing.T) {
	src := []byte("# Title\n\nintro\n\n## 1. Description\n\ntext\n\n```md\n## not a heading\n```\n\n> ## quoted\n\n### Detail\n\n## Rationale ##\n")
	got := TopLevelHeadings(Parse(src), src)

	require.Len(t, got, 4)
	assert.Equal(t, Heading{Level: 1, Text: "Title", Start: 0, End: 8}, got[0])
	assert.Equal(t, "1. Description", got[1].Text)
	assert.Equal(t, "## 1. Description\n", string(src[got[1].Start:got[1].End]))
	assert.Equal(t, 3, got[2].Level)
	assert.Equal(t, "Rationale", got[3].Text)
	assert.Equal(t, len(src), got[3].End)
}

func TestTopLevelHeadings_LastLineWithoutNewline(t *testing.T) {
	src := []byte("## Only")
	got := TopLevelHeadings(Parse(src), src)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, len(src), got[0].End)
}

func TestParseATX(t *testing.T) {
	tests := []struct {
		line  string
		level int
		text  string
		ok    bool
	}{
		{"## Description", 2, "Description", true},
		{"##   Spaced   ", 2, "Spaced", true},
		{"## Closed ##\n", 2, "Closed", true},
		{"## C# usage", 2, "C# usage", true},
		{"   ### Indented", 3, "Indented", true},
		{"    ## code", 0, "", false},
		{"##NoSpace", 0, "", false},
		{"####### seven", 0, "", false},
		{"plain", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, text, ok := ParseATX(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.text, text)
		})
	}
}
