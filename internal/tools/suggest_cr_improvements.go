package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/suggest"
)

// SuggestCRImprovementsTool handles the suggest_cr_improvements MCP tool.
type SuggestCRImprovementsTool struct {
	keys     KeyResolver
	analyzer Analyzer
}

// NewSuggestCRImprovementsTool creates a SuggestCRImprovementsTool.
func NewSuggestCRImprovementsTool(keys KeyResolver, analyzer Analyzer) *SuggestCRImprovementsTool {
	return &SuggestCRImprovementsTool{keys: keys, analyzer: analyzer}
}

type suggestParams struct {
	keyParams
}

func (suggestParams) ToolName() string { return "suggest_cr_improvements" }

func (t *SuggestCRImprovementsTool) Name() string { return "suggest_cr_improvements" }

// Definition returns the MCP tool definition for registration.
func (t *SuggestCRImprovementsTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Review a CR and suggest improvements: missing or thin sections, vague or "+
				"missing acceptance criteria, structural problems and header gaps. "+
				"Returns a 0-100 score with the findings ordered as found.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		projectOption(),
		keyOption(),
	)
}

func (t *SuggestCRImprovementsTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	return suggestParams{keyParams: kp}, nil
}

var severityIcon = map[suggest.Severity]string{
	suggest.SeverityCritical: "🔴",
	suggest.SeverityMajor:    "🟠",
	suggest.SeverityMinor:    "🟡",
	suggest.SeverityInfo:     "🔵",
}

func (t *SuggestCRImprovementsTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(suggestParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}
	report, err := t.analyzer.Analyze(ctx, proj, key)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **%s** - %s\n\n", report.Key, report.Title)
	fmt.Fprintf(&b, "**Score:** %d/100\n", report.Score)
	fmt.Fprintf(&b, "%s\n", report.Summary)
	for _, s := range report.Suggestions {
		where := ""
		if s.Section != "" {
			where = fmt.Sprintf(" (%s)", s.Section)
		}
		fmt.Fprintf(&b, "\n%s **%s** [%s]%s: %s\n", severityIcon[s.Severity], s.Category, s.Severity, where, s.Message)
		if s.Actionable != "" {
			fmt.Fprintf(&b, "   → %s\n", s.Actionable)
		}
	}
	return b.String(), nil
}
