package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/markdown-ticket/mdt/internal/keys"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/ratelimit"
	"github.com/markdown-ticket/mdt/internal/tickets"
)

type echoParams struct{ text string }

func (echoParams) ToolName() string { return "echo" }

type echoTool struct {
	err   error
	panic bool
	calls int
}

func (t *echoTool) Name() string { return "echo" }

func (t *echoTool) Definition() mcp.Tool {
	return mcp.NewTool("echo", mcp.WithString("text", mcp.Required()))
}

func (t *echoTool) Decode(a Args) (Params, error) {
	s, err := a.RequiredString("text")
	if err != nil {
		return nil, err
	}
	return echoParams{text: s}, nil
}

func (t *echoTool) Execute(_ context.Context, p Params) (string, error) {
	t.calls++
	if t.panic {
		panic("boom")
	}
	if t.err != nil {
		return "", t.err
	}
	return p.(echoParams).text, nil
}

func newDispatcher(t *testing.T, opts Options, tools ...Tool) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(opts, tools...)
	require.NoError(t, err)
	return d
}

func TestDispatch_Success(t *testing.T) {
	d := newDispatcher(t, Options{}, &echoTool{})

	resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": "hello"})

	require.True(t, resp.OK())
	assert.Equal(t, "hello", resp.Data)
	assert.Equal(t, []State{
		StateReceived, StateValidated, StateRateChecked,
		StateDispatched, StateSanitized, StateResponded,
	}, resp.Trace)
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newDispatcher(t, Options{}, &echoTool{})

	resp := d.Dispatch(context.Background(), "nope", nil)

	require.False(t, resp.OK())
	assert.Equal(t, CodeMethodNotFound, resp.Err.Code)
	assert.Equal(t, []State{StateReceived, StateResponded}, resp.Trace)
}

func TestDispatch_InvalidParamsNeverExecutes(t *testing.T) {
	tool := &echoTool{}
	d := newDispatcher(t, Options{}, tool)

	resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": 42})

	require.False(t, resp.OK())
	assert.Equal(t, CodeInvalidParams, resp.Err.Code)
	assert.Contains(t, resp.Err.Message, "must be a string")
	assert.Zero(t, tool.calls)
}

func TestDispatch_RateLimited(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter, err := ratelimit.New(ratelimit.Config{
		Default: ratelimit.Window{Max: 2, Window: time.Second},
	}, ratelimit.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	tool := &echoTool{}
	d := newDispatcher(t, Options{Limiter: limiter}, tool)
	args := map[string]any{"text": "x"}

	require.True(t, d.Dispatch(context.Background(), "echo", args).OK())
	require.True(t, d.Dispatch(context.Background(), "echo", args).OK())

	resp := d.Dispatch(context.Background(), "echo", args)
	require.False(t, resp.OK())
	assert.Equal(t, CodeRateLimited, resp.Err.Code)
	assert.Equal(t, time.Second, resp.Err.RetryAfter)
	assert.Equal(t, int64(1000), resp.Envelope().Error.RetryAfterMs)
	assert.Equal(t, 2, tool.calls)
}

func TestDispatch_InvalidCallsDoNotConsumeRateLimit(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Config{
		Default: ratelimit.Window{Max: 1, Window: time.Minute},
	})
	require.NoError(t, err)
	d := newDispatcher(t, Options{Limiter: limiter}, &echoTool{})

	bad := d.Dispatch(context.Background(), "echo", map[string]any{})
	require.Equal(t, CodeInvalidParams, bad.Err.Code)

	assert.True(t, d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"}).OK())
}

func TestDispatch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    Code
		message string
	}{
		{
			name:    "not found",
			err:     fmt.Errorf("loading: %w", &tickets.NotFoundError{What: "ticket MDT-009"}),
			code:    CodeNotFound,
			message: "ticket MDT-009 not found",
		},
		{
			name:    "no project context",
			err:     &keys.Error{Kind: keys.KindNoProjectContext, Message: "no project"},
			code:    CodeNoProjectContext,
			message: "no project",
		},
		{
			name:    "invalid key",
			err:     &keys.Error{Kind: keys.KindInvalidKeyFormat, Message: "bad key"},
			code:    CodeInvalidParams,
			message: "bad key",
		},
		{
			name:    "validation",
			err:     &tickets.ValidationError{Field: "type", Message: "invalid type"},
			code:    CodeInvalidParams,
			message: "invalid type",
		},
		{
			name:    "timeout",
			err:     fmt.Errorf("git: %w", context.DeadlineExceeded),
			code:    CodeExecutionError,
			message: "the operation timed out",
		},
		{
			name:    "internal",
			err:     errors.New("open /home/alice/secret/docs/CRs/MDT-001.md: permission denied"),
			code:    CodeExecutionError,
			message: genericExecutionMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, Options{}, &echoTool{err: tt.err})

			resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"})

			require.False(t, resp.OK())
			assert.Equal(t, tt.code, resp.Err.Code)
			assert.Equal(t, tt.message, resp.Err.Message)
			assert.NotContains(t, resp.Err.Message, "/home/alice")
		})
	}
}

func TestDispatch_InternalErrorsAreLogged(t *testing.T) {
	logger, logs := logging.NewObserved(zapcore.DebugLevel)
	d := newDispatcher(t, Options{Logger: logger}, &echoTool{err: errors.New("disk on fire")})

	d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"})

	failed := logs.FilterMessage("tool execution failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "disk on fire", failed[0].ContextMap()["error"])
	assert.Equal(t, 1, logs.FilterMessage("tool call failed").Len())
}

func TestDispatch_PanicBecomesExecutionError(t *testing.T) {
	d := newDispatcher(t, Options{}, &echoTool{panic: true})

	resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"})

	require.False(t, resp.OK())
	assert.Equal(t, CodeExecutionError, resp.Err.Code)
	assert.Equal(t, genericExecutionMessage, resp.Err.Message)
}

func TestDispatch_Sanitizes(t *testing.T) {
	d := newDispatcher(t, Options{Sanitize: true}, &echoTool{})

	resp := d.Dispatch(context.Background(), "echo", map[string]any{
		"text": `see <a href="javascript:alert(1)">x</a><script>steal()</script>`,
	})

	require.True(t, resp.OK())
	assert.NotContains(t, resp.Data, "<script")
	assert.NotContains(t, resp.Data, "javascript:")
}

func TestDispatch_ErrorMessagesNeverEchoActiveContent(t *testing.T) {
	_, keyErr := keys.Parse("javascript:alert(1)")
	require.Error(t, keyErr)

	for _, opts := range []Options{{Sanitize: true}, {}} {
		d := newDispatcher(t, opts, &echoTool{err: keyErr})

		resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"})

		require.False(t, resp.OK())
		assert.Equal(t, CodeInvalidParams, resp.Err.Code)
		assert.Contains(t, resp.Err.Message, "invalid CR key")
		assert.NotContains(t, strings.ToLower(resp.Err.Message), "javascript:")
	}
}

func TestDispatch_SanitizeDisabledPassesThrough(t *testing.T) {
	d := newDispatcher(t, Options{}, &echoTool{})
	raw := "<script>x</script>"

	resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": raw})

	require.True(t, resp.OK())
	assert.Equal(t, raw, resp.Data)
}

func TestDispatch_SanitizerPanicFailsCall(t *testing.T) {
	d := newDispatcher(t, Options{Sanitize: true}, &echoTool{})
	d.sanitizer = func(string) string { panic("regex exploded") }

	resp := d.Dispatch(context.Background(), "echo", map[string]any{"text": "x"})

	require.False(t, resp.OK())
	assert.Equal(t, CodeExecutionError, resp.Err.Code)
	assert.Equal(t, []State{StateReceived, StateValidated, StateRateChecked, StateDispatched, StateResponded}, resp.Trace)
}

func TestNewDispatcher_DuplicateTool(t *testing.T) {
	_, err := NewDispatcher(Options{}, &echoTool{}, &echoTool{})
	require.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "RateChecked", StateRateChecked.String())
	assert.Equal(t, "State(42)", State(42).String())
}
