package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSections(t *testing.T) {
	body := "# T\n\npreamble\n\n## 1. Description\n\nd\n\n### Sub\n\ns\n\n## Notes\n\nn\n\n# Appendix\n\nloose\n"
	sections := parseSections(body)
	require.Len(t, sections, 2)

	assert.Equal(t, "1. Description", sections[0].Heading)
	assert.Equal(t, "Description", sections[0].Title)
	assert.Equal(t, 1, sections[0].Ordinal)
	assert.Equal(t, "d\n\n### Sub\n\ns", sectionBody(body, sections[0]))

	assert.Equal(t, 0, sections[1].Ordinal)
	assert.Equal(t, "n", sectionBody(body, sections[1]), "a level-1 heading ends the section")
}

func TestFindSection(t *testing.T) {
	sections := parseSections("## 2. Notes\n\na\n\n## 3. Notes\n\nb\n\n## Scope\n")

	sec, ok := findSection(sections, "3. Notes")
	require.True(t, ok)
	assert.Equal(t, 3, sec.Ordinal, "an exact heading wins over a title match")

	sec, ok = findSection(sections, "notes")
	require.True(t, ok)
	assert.Equal(t, 2, sec.Ordinal, "title-only matches take the first section")

	sec, ok = findSection(sections, "## scope")
	require.True(t, ok)
	assert.Equal(t, "Scope", sec.Heading)

	_, ok = findSection(sections, "")
	assert.False(t, ok)
	_, ok = findSection(sections, "Missing")
	assert.False(t, ok)
}

func TestReplaceSection_EmptyAndLastSection(t *testing.T) {
	body := "## A\n\na\n\n## B\nb"
	sections := parseSections(body)

	got := replaceSection(body, sections[0], "", UpdateReplace)
	assert.Equal(t, "## A\n\n## B\nb", got)

	got = replaceSection(body, sections[1], "more", UpdateAppend)
	assert.Equal(t, "## A\n\na\n\n## B\n\nb\n\nmore\n", got)

	got = replaceSection("## Empty\n", parseSections("## Empty\n")[0], "filled", UpdateAppend)
	assert.Equal(t, "## Empty\n\nfilled\n", got)
}
