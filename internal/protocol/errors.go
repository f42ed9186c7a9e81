// Package protocol turns tool calls into validated, rate-limited,
// sanitized responses with a stable error taxonomy.
//
// Every call walks the same state machine:
//
//	Received -> Validated -> RateChecked -> Dispatched -> Sanitized -> Responded
//
// and short-circuits to Responded with an *Error at the first failure.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/sanitize"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

// Code is a JSON-RPC style error code.
type Code int

const (
	CodeMethodNotFound   Code = -32601
	CodeInvalidParams    Code = -32602
	CodeExecutionError   Code = -32000
	CodeNotFound         Code = -32001
	CodeRateLimited      Code = -32002
	CodeNoProjectContext Code = -32003
)

var codeNames = map[Code]string{
	CodeMethodNotFound:   "method_not_found",
	CodeInvalidParams:    "invalid_params",
	CodeExecutionError:   "execution_error",
	CodeNotFound:         "not_found",
	CodeRateLimited:      "rate_limited",
	CodeNoProjectContext: "no_project_context",
}

// String returns the metric label for c.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Error is the caller-facing error of a tool call. Message is already
// escaped and free of filesystem paths.
type Error struct {
	Code       Code
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error %d: %s", e.Code, e.Message)
}

// NewError builds an Error, escaping and scrubbing the message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: cleanMessage(fmt.Sprintf(format, args...))}
}

// InvalidParams reports a missing, mistyped or out-of-range parameter.
func InvalidParams(format string, args ...any) *Error {
	return NewError(CodeInvalidParams, format, args...)
}

const genericExecutionMessage = "internal error while executing the tool; see server logs"

// FromError classifies an error returned by a tool. internal is true when
// the error carries no caller-safe meaning; its details must be logged,
// never returned.
func FromError(err error) (e *Error, internal bool) {
	if err == nil {
		return nil, false
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe, false
	}

	var ke *keys.Error
	if errors.As(err, &ke) {
		if ke.Kind == keys.KindNoProjectContext {
			return NewError(CodeNoProjectContext, "%s", ke.Message), false
		}
		return NewError(CodeInvalidParams, "%s", ke.Message), false
	}

	var ve *tickets.ValidationError
	if errors.As(err, &ve) {
		return NewError(CodeInvalidParams, "%s", ve.Message), false
	}

	if errors.Is(err, tickets.ErrNotFound) || errors.Is(err, project.ErrNotFound) {
		return NewError(CodeNotFound, "%s", err.Error()), false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeExecutionError, "the operation timed out"), false
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeExecutionError, "the operation was cancelled"), false
	}

	return &Error{Code: CodeExecutionError, Message: genericExecutionMessage}, true
}

// absPath matches absolute Unix paths and Windows drive paths with at
// least two components, starting a word. Relative paths such as
// docs/CRs/MDT-001.md and branch names are left alone.
var absPath = regexp.MustCompile(`(^|[\s"'(=:])(?:[A-Za-z]:\\|/)[^\s/\\"'<>]+(?:[/\\][^\s/\\"'<>]+)+`)

// cleanMessage strips active content, scrubs paths and escapes markup.
// Messages often quote caller input, so this runs whether or not output
// sanitization is enabled.
func cleanMessage(msg string) string {
	msg = sanitize.Text(msg)
	return sanitize.EscapeMessage(absPath.ReplaceAllString(msg, "${1}[path]"))
}
