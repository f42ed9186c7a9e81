package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewCRPrompt handles the mdt-new MCP prompt. It walks the assistant
// through drafting a CR with the user before creating it.
type NewCRPrompt struct{}

// NewNewCRPrompt creates a NewCRPrompt.
func NewNewCRPrompt() *NewCRPrompt {
	return &NewCRPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *NewCRPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("mdt-new",
		mcp.WithPromptDescription(
			"Draft and create a new CR. The assistant asks for the missing details, "+
				"creates the CR from the right template and fills in its sections.",
		),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Working title of the change"),
		),
		mcp.WithArgument("type",
			mcp.ArgumentDescription("Architecture, Feature Enhancement, Bug Fix, Technical Debt, Documentation or Research. Default: Feature Enhancement"),
		),
	)
}

// Handle processes the mdt-new prompt request.
func (p *NewCRPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := "(ask me for a title)"
	if t, ok := req.Params.Arguments["title"]; ok && t != "" {
		title = t
	}

	crType := "Feature Enhancement"
	if t, ok := req.Params.Arguments["type"]; ok && t != "" {
		crType = t
	}

	return &mcp.GetPromptResult{
		Description: "Create a new CR",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to create a new %s CR titled %q.\n\n"+
						"1. If you do not know which project to use, call `list_projects` and ask me\n"+
						"2. Ask me the questions you need to fill in the description and rationale\n"+
						"3. Call `create_cr` without content so the %s template is used\n"+
						"4. Fill each section with `manage_cr_sections` (operation \"update\")\n"+
						"5. Finish with `suggest_cr_improvements` and fix any major findings",
					crType, title, crType,
				)),
			},
		},
	}, nil
}
