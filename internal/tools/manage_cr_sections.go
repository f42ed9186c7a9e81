package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markdown-ticket/mdt/internal/protocol"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// SectionOperation selects what manage_cr_sections does.
type SectionOperation string

const (
	SectionList   SectionOperation = "list"
	SectionGet    SectionOperation = "get"
	SectionUpdate SectionOperation = "update"
)

var sectionOperations = []SectionOperation{SectionList, SectionGet, SectionUpdate}

// ManageCRSectionsTool handles the manage_cr_sections MCP tool.
type ManageCRSectionsTool struct {
	keys  KeyResolver
	store tickets.Store
}

// NewManageCRSectionsTool creates a ManageCRSectionsTool.
func NewManageCRSectionsTool(keys KeyResolver, store tickets.Store) *ManageCRSectionsTool {
	return &ManageCRSectionsTool{keys: keys, store: store}
}

type manageCRSectionsParams struct {
	keyParams
	Operation SectionOperation
	Section   string
	Content   string
	Mode      tickets.UpdateMode
}

func (manageCRSectionsParams) ToolName() string { return "manage_cr_sections" }

func (t *ManageCRSectionsTool) Name() string { return "manage_cr_sections" }

// Definition returns the MCP tool definition for registration.
func (t *ManageCRSectionsTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Work with the ## sections of a CR body without rewriting the whole document. "+
				"list shows every section heading; get returns one section; update replaces or "+
				"appends to one section and leaves the rest of the file untouched. "+
				"Sections are addressed by heading: \"## 1. Description\", \"1. Description\" "+
				"and \"Description\" all work.",
		),
		projectOption(),
		keyOption(),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Enum(enumNames(sectionOperations)...),
		),
		mcp.WithString("section",
			mcp.Description("Section heading. Required for get and update."),
		),
		mcp.WithString("content",
			mcp.Description("New section body for update. A leading copy of the heading line is dropped."),
		),
		mcp.WithString("updateMode",
			mcp.Description("replace swaps the body; append adds after it, separated by a blank line."),
			mcp.Enum(enumNames(tickets.UpdateModes)...),
			mcp.DefaultString(string(tickets.UpdateReplace)),
		),
	)
}

func (t *ManageCRSectionsTool) Decode(a protocol.Args) (protocol.Params, error) {
	kp, err := decodeKey(a)
	if err != nil {
		return nil, err
	}
	p := manageCRSectionsParams{keyParams: kp}

	if _, err := a.RequiredString("operation"); err != nil {
		return nil, err
	}
	if p.Operation, err = protocol.Enum(a, "operation", sectionOperations, ""); err != nil {
		return nil, err
	}
	if p.Mode, err = protocol.Enum(a, "updateMode", tickets.UpdateModes, tickets.UpdateReplace); err != nil {
		return nil, err
	}

	switch p.Operation {
	case SectionGet:
		if p.Section, err = a.RequiredString("section"); err != nil {
			return nil, err
		}
	case SectionUpdate:
		if p.Section, err = a.RequiredString("section"); err != nil {
			return nil, err
		}
		// Content may be blank to clear a section, but it must be given.
		if _, ok := a["content"]; !ok {
			return nil, protocol.InvalidParams("missing required parameter: content")
		}
		if p.Content, err = a.String("content"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (t *ManageCRSectionsTool) Execute(ctx context.Context, params protocol.Params) (string, error) {
	p := params.(manageCRSectionsParams)
	proj, key, err := t.keys.Resolve(p.Key, p.Project)
	if err != nil {
		return "", err
	}

	switch p.Operation {
	case SectionList:
		sections, err := t.store.ListSections(ctx, proj, key)
		if err != nil {
			return "", err
		}
		if len(sections) == 0 {
			return fmt.Sprintf("📑 **%s** has no ## sections.\n", key), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📑 **%s** - %d section(s)\n\n", key, len(sections))
		for _, s := range sections {
			fmt.Fprintf(&b, "- ## %s\n", s.Heading)
		}
		return b.String(), nil

	case SectionGet:
		sec, body, err := t.store.GetSection(ctx, proj, key, p.Section)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📖 **Section: %s** (%s)\n", sec.Heading, key)
		fmt.Fprintf(&b, "**Content Length:** %d characters\n\n", len(body))
		b.WriteString("---\n")
		b.WriteString(body)
		if body != "" && !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("---\n")
		return b.String(), nil

	default:
		sec, err := t.store.UpdateSection(ctx, proj, key, p.Section, p.Content, p.Mode)
		if err != nil {
			return "", err
		}
		verb := "Replaced"
		if p.Mode == tickets.UpdateAppend {
			verb = "Appended to"
		}
		return fmt.Sprintf("✅ %s section **%s** in %s\n", verb, sec.Heading, key), nil
	}
}
