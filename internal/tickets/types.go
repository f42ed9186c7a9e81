// Package tickets stores change tickets as markdown files with a YAML
// header.
//
// A ticket file is named <KEY>-<slug>.md and lives in its project's
// tickets directory (or in the matching worktree's copy of it). The body
// is organised in level-2 sections addressed by heading text.
//
// This package follows the same layering as the rest of the server:
//   - types, header codec, section algebra and store in separate files
//   - Store is an interface; tools depend on the abstraction
//   - observers hear about mutations without the store knowing who they are
package tickets

import (
	"fmt"
	"strings"
)

// --- Ticket type enum ---

// Type categorises what kind of work a ticket represents.
type Type string

const (
	TypeArchitecture  Type = "Architecture"
	TypeFeature       Type = "Feature Enhancement"
	TypeBugFix        Type = "Bug Fix"
	TypeTechDebt      Type = "Technical Debt"
	TypeDocumentation Type = "Documentation"
	TypeResearch      Type = "Research"
)

// Types lists the valid ticket types in display order.
var Types = []Type{TypeArchitecture, TypeFeature, TypeBugFix, TypeTechDebt, TypeDocumentation, TypeResearch}

// ValidateType returns a ValidationError if t is not a known type.
func ValidateType(t Type) error {
	for _, v := range Types {
		if v == t {
			return nil
		}
	}
	return invalidEnum("type", string(t), Types)
}

// --- Status enum ---

// Status is the lifecycle state of a ticket. There is no transition graph:
// any status may follow any other.
type Status string

const (
	StatusProposed    Status = "Proposed"
	StatusApproved    Status = "Approved"
	StatusInProgress  Status = "In Progress"
	StatusOnHold      Status = "On Hold"
	StatusImplemented Status = "Implemented"
	StatusRejected    Status = "Rejected"
)

// Statuses lists the valid statuses in lifecycle order.
var Statuses = []Status{StatusProposed, StatusApproved, StatusInProgress, StatusOnHold, StatusImplemented, StatusRejected}

// ValidateStatus returns a ValidationError if s is not a known status.
func ValidateStatus(s Status) error {
	for _, v := range Statuses {
		if v == s {
			return nil
		}
	}
	return invalidEnum("status", string(s), Statuses)
}

// --- Priority enum ---

// Priority ranks tickets.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists the valid priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ValidatePriority returns a ValidationError if p is not a known priority.
func ValidatePriority(p Priority) error {
	for _, v := range Priorities {
		if v == p {
			return nil
		}
	}
	return invalidEnum("priority", string(p), Priorities)
}

// --- Read modes ---

// Mode selects how much of a ticket Get callers see.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeAttributes Mode = "attributes"
	ModeMetadata   Mode = "metadata"
)

// Modes lists the valid read modes.
var Modes = []Mode{ModeFull, ModeAttributes, ModeMetadata}

// ParseMode maps an empty string to ModeFull and rejects unknown modes.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeFull, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", invalidEnum("mode", s, Modes)
}

// --- Section update modes ---

// UpdateMode selects how UpdateSection combines old and new content.
type UpdateMode string

const (
	UpdateReplace UpdateMode = "replace"
	UpdateAppend  UpdateMode = "append"
)

// UpdateModes lists the valid section update modes.
var UpdateModes = []UpdateMode{UpdateReplace, UpdateAppend}

// ParseUpdateMode maps an empty string to UpdateReplace.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(s) {
	case "":
		return UpdateReplace, nil
	case UpdateReplace, UpdateAppend:
		return UpdateMode(s), nil
	}
	return "", invalidEnum("updateMode", s, UpdateModes)
}

func invalidEnum[T ~string](field, got string, valid []T) error {
	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid %s %q: must be one of: %s", field, got, strings.Join(names, ", ")),
	}
}
