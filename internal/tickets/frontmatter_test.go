package tickets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	data := "---\r\ncode: MDT-001\r\ntitle: Hello\r\nstatus: In Progress\r\ntype: Bug Fix\r\nimpactAreas: api, cli , \r\ncustom:\r\n  nested: true\r\n---\r\n# Hello\r\n\r\n---\r\n\r\nrule above\r\n"

	h, body, err := decodeDocument([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "MDT-001", h.Code)
	assert.Equal(t, StatusInProgress, h.Status)
	assert.Equal(t, StringList{"api", "cli"}, h.ImpactAreas)
	assert.Equal(t, map[string]any{"nested": true}, h.Extra["custom"])
	assert.Equal(t, "# Hello\n\n---\n\nrule above\n", body)
}

func TestDecodeDocument_ImpactAreasSequence(t *testing.T) {
	h, _, err := decodeDocument([]byte("---\nimpactAreas:\n  - api\n  - docs\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, StringList{"api", "docs"}, h.ImpactAreas)
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := map[string]string{
		"no fence":     "# Just markdown\n",
		"unterminated": "---\ncode: MDT-001\n# body\n",
		"bad yaml":     "---\ncode: [\n---\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeDocument([]byte(data))
			require.Error(t, err)
		})
	}

	_, _, err := decodeDocument([]byte("no header"))
	assert.True(t, errors.Is(err, errNoFrontmatter))
}

func TestEncodeDocument_PreservesExtraAndOrder(t *testing.T) {
	h := &Header{
		Code:     "MDT-002",
		Title:    "Ordered",
		Status:   StatusProposed,
		Type:     TypeFeature,
		Priority: PriorityLow,
		Extra:    map[string]any{"reviewer": "sam"},
	}
	data, err := encodeDocument(h, "# Ordered\n")
	require.NoError(t, err)
	assert.Equal(t, "---\ncode: MDT-002\ntitle: Ordered\nstatus: Proposed\ntype: Feature Enhancement\npriority: Low\nreviewer: sam\n---\n# Ordered\n", string(data))

	back, body, err := decodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "# Ordered\n", body)
	assert.Equal(t, "sam", back.Extra["reviewer"])
}
