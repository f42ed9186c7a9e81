// Package prompts implements MCP prompts for working with CRs.
//
// Prompts are user-triggered workflows (like slash commands) that tell the
// assistant which tools to call and in what order. Unlike tools, the user
// starts them.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the mdt-review MCP prompt.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("mdt-review",
		mcp.WithPromptDescription(
			"Review a CR: read it, run the improvement analysis and propose "+
				"concrete section edits for the findings that matter.",
		),
		mcp.WithArgument("key",
			mcp.ArgumentDescription("CR key such as MDT-005, or just the number"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project code, when the key is a bare number and no default project is set"),
		),
	)
}

// Handle processes the mdt-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	key := strings.TrimSpace(req.Params.Arguments["key"])
	if key == "" {
		return nil, fmt.Errorf("argument 'key' is required")
	}
	project := strings.TrimSpace(req.Params.Arguments["project"])

	args := fmt.Sprintf("key: %q", key)
	if project != "" {
		args += fmt.Sprintf(", project: %q", project)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review CR %s", key),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please review CR %[1]s.\n\n"+
						"1. Call `get_cr` with {%[2]s} and read the whole ticket\n"+
						"2. Call `suggest_cr_improvements` with {%[2]s}\n"+
						"3. Summarize the score and group the findings by severity\n"+
						"4. For every critical or major finding, draft the replacement text for the affected section\n"+
						"5. Ask me before applying anything; then use `manage_cr_sections` with operation \"update\" "+
						"so the rest of the document stays untouched",
					key, args,
				)),
			},
		},
	}, nil
}
