package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Messages[0].Content)
	}
	return tc.Text
}

func TestReviewPrompt(t *testing.T) {
	p := NewReviewPrompt()
	if p.Definition().Name != "mdt-review" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"key": "5", "project": "MDT"}

	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	for _, want := range []string{"suggest_cr_improvements", "manage_cr_sections", `project: "MDT"`, `key: "5"`} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}
}

func TestReviewPrompt_RequiresKey(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"key": "  "}

	if _, err := NewReviewPrompt().Handle(context.Background(), req); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestNewCRPrompt_Defaults(t *testing.T) {
	res, err := NewNewCRPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	if !strings.Contains(text, "new Feature Enhancement CR") {
		t.Errorf("default type missing:\n%s", text)
	}
	if !strings.Contains(text, "create_cr") {
		t.Error("prompt should mention create_cr")
	}
}
