package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText_RemovesActiveContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"script block", "a<script>alert(1)</script>b", "ab"},
		{"script with attrs", "a<SCRIPT type=\"text/javascript\">x()</SCRIPT >b", "ab"},
		{"unterminated script", "a<script>steal()", "a"},
		{"stray closing tag", "a</script>b", "ab"},
		{"nested script", "<scr<script>x</script>ipt>alert(1)</script>", "alert(1)"},
		{"iframe", "x<iframe src=\"https://evil\"></iframe>y", "xy"},
		{"embed", "x<embed src=a.swf>y", "xy"},
		{"double quoted handler", `<img src="a.png" onerror="alert(1)">`, `<img src="a.png">`},
		{"single quoted handler", `<div onclick='go()' class="c">t</div>`, `<div class="c">t</div>`},
		{"unquoted handler", `<body onload=init()>`, `<body>`},
		{"handler in plain text", `Click [here](https://x.io) onclick="alert(1)" now`, `Click [here](https://x.io) now`},
		{"handler in unclosed tag", `<img src=x onerror="alert(1)"`, `<img src=x`},
		{"single quoted handler in text", `hover onmouseover='steal()' me`, `hover me`},
		{"javascript scheme", "[x](javascript:alert(1))", "[x](blocked:alert(1))"},
		{"spaced scheme", `<a href="JavaScript :void(0)">`, `<a href="blocked:void(0)">`},
		{"vbscript", "vbscript:msgbox", "blocked:msgbox"},
		{"data html", "data:text/html;base64,PHNj", "blocked:;base64,PHNj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_BenignMarkdownUnchanged(t *testing.T) {
	inputs := []string{
		"# Title\n\n## 1. Description\n\nSet `online=true` and one = 1 in config.\n",
		"- [ ] Criterion with **bold** and _emphasis_\n| a | b |\n|---|---|\n| 1 | 2 |\n",
		"<details><summary>More</summary>\n\nBody & <b>bold</b>\n</details>\n",
		"Image: ![logo](https://example.com/logo.png \"title\")\nData: data:image/png;base64,iVBOR\n",
		"```go\nif a < b && c > d {\n\treturn\n}\n```\n",
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Text(in))
	}
}

func TestText_Idempotent(t *testing.T) {
	in := strings.Repeat("<scr<script>ipt>x</script>", 3) + `<a onclick="x">ok</a>`
	once := Text(in)
	assert.Equal(t, once, Text(once))
	assert.NotContains(t, strings.ToLower(once), "<script")
	assert.NotContains(t, once, "onclick")
}

func TestEscapeMessage(t *testing.T) {
	assert.Equal(t, "a &amp;amp; b", EscapeMessage("a &amp; b"))
	assert.Equal(t, "&lt;script&gt; &amp; more", EscapeMessage("<script> & more"))
	assert.Equal(t, "plain", EscapeMessage("plain"))
}
